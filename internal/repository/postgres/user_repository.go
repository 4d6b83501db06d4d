package postgres

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/jmoiron/sqlx"
)

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	FullName     string `db:"full_name"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
	}
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`

	id := newID()
	_, err := r.db.ExecContext(ctx, query, id, user.Username, user.FullName, user.PasswordHash, string(user.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return customError.WrapConflict("username " + user.Username + " already exists")
		}
		return customError.WrapStoreError(err)
	}

	user.ID = id
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT id, username, full_name, password_hash, role FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `SELECT id, username, full_name, password_hash, role FROM users WHERE username = $1`, username)
}

func (r *userRepository) get(ctx context.Context, query, ref string) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, ref); err != nil {
		return nil, mapError(err, func() error { return customError.WrapUserNotFound(ref) })
	}
	return row.toDomain(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	query := `SELECT id, username, full_name, password_hash, role FROM users ORDER BY username`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return customError.WrapStoreError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return customError.WrapUserNotFound(id)
	}
	return nil
}
