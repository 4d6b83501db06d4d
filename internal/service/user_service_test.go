package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository/mocks"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	tests := []struct {
		name       string
		actor      domain.Session
		request    *domain.CreateUserRequest
		setupMocks func(*mocks.MockUserRepository, *mocks.MockAuditRepository)
		wantKind   error
	}{
		{
			name:    "Success - admin creates staff",
			actor:   admin,
			request: &domain.CreateUserRequest{Username: "clerk", FullName: "Desk Clerk", Password: "password1", Role: domain.RoleStaff},
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByUsername", mock.Anything, "clerk").Return(nil, customError.WrapUserNotFound("clerk"))
				userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
					return u.Username == "clerk" && u.PasswordHash != "password1" &&
						bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password1")) == nil
				})).Return(nil)
				auditRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
					return e.Action == domain.ActionCreateUser && e.User == "boss"
				})).Return(nil)
			},
		},
		{
			name:       "Failure - staff cannot create users",
			actor:      staff,
			request:    &domain.CreateUserRequest{Username: "x", Password: "password1", Role: domain.RoleStaff},
			setupMocks: func(*mocks.MockUserRepository, *mocks.MockAuditRepository) {},
			wantKind:   customError.ErrPermissionDenied,
		},
		{
			name:    "Failure - username taken",
			actor:   admin,
			request: &domain.CreateUserRequest{Username: "clerk", Password: "password1", Role: domain.RoleStaff},
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByUsername", mock.Anything, "clerk").Return(&domain.User{Username: "clerk"}, nil)
			},
			wantKind: customError.ErrConflict,
		},
		{
			name:    "Failure - lost race on unique index",
			actor:   admin,
			request: &domain.CreateUserRequest{Username: "clerk", Password: "password1", Role: domain.RoleStaff},
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByUsername", mock.Anything, "clerk").Return(nil, customError.WrapUserNotFound("clerk"))
				userRepo.On("Create", mock.Anything, mock.Anything).Return(customError.WrapConflict("username clerk already exists"))
			},
			wantKind: customError.ErrConflict,
		},
		{
			name:       "Failure - short password",
			actor:      admin,
			request:    &domain.CreateUserRequest{Username: "clerk", Password: "abc", Role: domain.RoleStaff},
			setupMocks: func(*mocks.MockUserRepository, *mocks.MockAuditRepository) {},
			wantKind:   customError.ErrValidation,
		},
		{
			name:       "Failure - unknown role",
			actor:      admin,
			request:    &domain.CreateUserRequest{Username: "clerk", Password: "password1", Role: "Owner"},
			setupMocks: func(*mocks.MockUserRepository, *mocks.MockAuditRepository) {},
			wantKind:   customError.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mocks.MockUserRepository{}
			auditRepo := &mocks.MockAuditRepository{}
			svc := NewUserService(userRepo, NewAuditLog(auditRepo, clock.NewFixed(time.Now())))
			tt.setupMocks(userRepo, auditRepo)

			user, err := svc.CreateUser(context.Background(), tt.actor, tt.request)

			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
				assert.Nil(t, user)
				auditRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.request.Role, user.Role)
			}
			userRepo.AssertExpectations(t)
			auditRepo.AssertExpectations(t)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name       string
		actor      domain.Session
		setupMocks func(*mocks.MockUserRepository, *mocks.MockAuditRepository)
		wantKind   error
	}{
		{
			name:  "Success",
			actor: admin,
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Username: "clerk"}, nil)
				userRepo.On("Delete", mock.Anything, "u1").Return(nil)
				auditRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
					return e.Action == domain.ActionDeleteUser
				})).Return(nil)
			},
		},
		{
			name:  "Failure - deleting yourself",
			actor: admin,
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Username: "boss"}, nil)
			},
			wantKind: customError.ErrPermissionDenied,
		},
		{
			name:  "Failure - unknown user",
			actor: admin,
			setupMocks: func(userRepo *mocks.MockUserRepository, auditRepo *mocks.MockAuditRepository) {
				userRepo.On("GetByID", mock.Anything, "u1").Return(nil, customError.WrapUserNotFound("u1"))
			},
			wantKind: customError.ErrNotFound,
		},
		{
			name:       "Failure - staff",
			actor:      staff,
			setupMocks: func(*mocks.MockUserRepository, *mocks.MockAuditRepository) {},
			wantKind:   customError.ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mocks.MockUserRepository{}
			auditRepo := &mocks.MockAuditRepository{}
			svc := NewUserService(userRepo, NewAuditLog(auditRepo, clock.NewFixed(time.Now())))
			tt.setupMocks(userRepo, auditRepo)

			err := svc.DeleteUser(context.Background(), tt.actor, "u1")

			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
				userRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			userRepo.AssertExpectations(t)
			auditRepo.AssertExpectations(t)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))

	require.NoError(t, f.users.EnsureAdmin(f.ctx, "root", "bootstrap-pass"))
	require.NoError(t, f.users.EnsureAdmin(f.ctx, "other", "bootstrap-pass"))

	users, err := f.store.Users.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
}

func TestIdentityService(t *testing.T) {
	f := newFixture(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	_, err := f.users.CreateUser(f.ctx, admin, &domain.CreateUserRequest{
		Username: "Clerk", Password: "password1", Role: domain.RoleStaff,
	})
	require.NoError(t, err)

	t.Run("verify", func(t *testing.T) {
		ok, err := f.identity.VerifyPassword(f.ctx, "Clerk", "password1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.identity.VerifyPassword(f.ctx, "Clerk", "password2")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = f.identity.VerifyPassword(f.ctx, "clerk", "password1")
		require.NoError(t, err)
		assert.False(t, ok, "usernames are case-sensitive")
	})

	t.Run("authenticate", func(t *testing.T) {
		session, err := f.identity.Authenticate(f.ctx, "Clerk", "password1")
		require.NoError(t, err)
		assert.Equal(t, domain.Session{Role: domain.RoleStaff, Username: "Clerk"}, session)

		_, err = f.identity.Authenticate(f.ctx, "ghost", "password1")
		assert.ErrorIs(t, err, customError.ErrPermissionDenied)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		userRepo := &mocks.MockUserRepository{}
		userRepo.On("GetByUsername", mock.Anything, "Clerk").Return(nil, customError.WrapStoreError(errors.New("timeout")))

		_, err := NewIdentityService(userRepo).VerifyPassword(context.Background(), "Clerk", "password1")

		assert.ErrorIs(t, err, customError.ErrStoreUnavailable)
	})
}
