package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	UserRepo repository.UserRepository
	audit    *AuditLog
}

func NewUserService(userRepo repository.UserRepository, audit *AuditLog) *UserService {
	return &UserService{UserRepo: userRepo, audit: audit}
}

// CreateUser adds an office account. Usernames are unique and case-sensitive.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Session, request *domain.CreateUserRequest) (*domain.User, error) {
	if err := requireAdmin(actor, "create users"); err != nil {
		return nil, err
	}
	if err := validateStruct(request); err != nil {
		return nil, err
	}

	user, err := s.insert(ctx, request)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Created %s user %s", user.Role, user.Username)
	if err := s.audit.Record(ctx, actor, domain.ActionCreateUser, details); err != nil {
		return user, err
	}
	return user, nil
}

func (s *UserService) insert(ctx context.Context, request *domain.CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(request.Username)

	_, err := s.UserRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, customError.WrapConflict("username " + username + " already exists")
	}
	if !customError.Is(err, customError.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(request.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		FullName:     strings.TrimSpace(request.FullName),
		PasswordHash: hash,
		Role:         request.Role,
	}
	// The unique index still rejects a racing insert with Conflict
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor domain.Session) ([]*domain.User, error) {
	if err := requireAdmin(actor, "list users"); err != nil {
		return nil, err
	}
	return s.UserRepo.List(ctx)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Session, id string) error {
	if err := requireAdmin(actor, "delete users"); err != nil {
		return err
	}

	user, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Username == actor.Username {
		return customError.WrapPermissionDenied("you cannot delete your own account")
	}

	if err := s.UserRepo.Delete(ctx, user.ID); err != nil {
		return err
	}

	details := fmt.Sprintf("Deleted user %s", user.Username)
	return s.audit.Record(ctx, actor, domain.ActionDeleteUser, details)
}

// EnsureAdmin creates the first admin account when the store has no users.
// It is a no-op otherwise.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	users, err := s.UserRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	request := &domain.CreateUserRequest{
		Username: username,
		FullName: "Administrator",
		Password: password,
		Role:     domain.RoleAdmin,
	}
	if err := validateStruct(request); err != nil {
		return err
	}
	if _, err := s.insert(ctx, request); err != nil {
		return err
	}

	logrus.WithField("username", username).Info("bootstrap admin account created")
	return s.audit.Record(ctx, domain.Session{Role: domain.RoleAdmin, Username: "system"},
		domain.ActionCreateUser, fmt.Sprintf("Created Admin user %s", username))
}
