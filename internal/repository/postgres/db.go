// Package postgres implements the repositories on PostgreSQL through sqlx.
// Identifiers are generated as 24-hex object ids so records keep the same
// shape as the MongoDB store.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens the database and verifies it is reachable within timeout.
func Connect(ctx context.Context, url string, pool PoolConfig, timeout time.Duration) (*sqlx.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return db, nil
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// NewStore wires the four repositories to db.
func NewStore(db *sqlx.DB, loc *time.Location) *repository.Store {
	return &repository.Store{
		Users:    NewUserRepository(db),
		Loans:    NewLoanRepository(db, loc),
		Payments: NewPaymentRepository(db),
		Logs:     NewAuditRepository(db),
		Ping:     db.PingContext,
		Close: func(context.Context) error {
			return db.Close()
		},
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func mapError(err error, notFound func() error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound()
	case isUniqueViolation(err):
		return customError.WrapConflict("duplicate key")
	default:
		return customError.WrapStoreError(err)
	}
}
