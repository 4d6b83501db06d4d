package service

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new password hashes.
var BcryptCost = bcrypt.DefaultCost

// HashPassword hashes a password using bcrypt
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type IdentityService struct {
	Users repository.UserRepository
}

func NewIdentityService(users repository.UserRepository) *IdentityService {
	return &IdentityService{Users: users}
}

// VerifyPassword compares plaintext against the stored hash of username.
// Unknown users verify as false; only store failures return an error.
func (s *IdentityService) VerifyPassword(ctx context.Context, username, plaintext string) (bool, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if customError.Is(err, customError.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil, nil
}

// Authenticate checks credentials and returns the session for the user.
func (s *IdentityService) Authenticate(ctx context.Context, username, plaintext string) (domain.Session, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if customError.Is(err, customError.ErrNotFound) {
			return domain.Session{}, customError.WrapPermissionDenied("invalid username or password")
		}
		return domain.Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) != nil {
		return domain.Session{}, customError.WrapPermissionDenied("invalid username or password")
	}

	return domain.Session{Role: user.Role, Username: user.Username}, nil
}
