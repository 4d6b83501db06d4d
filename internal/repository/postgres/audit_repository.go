package postgres

import (
	"context"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/jmoiron/sqlx"
)

type auditRow struct {
	ID        string `db:"id"`
	Timestamp string `db:"timestamp"`
	User      string `db:"user"`
	Action    string `db:"action"`
	Details   string `db:"details"`
}

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	query := `INSERT INTO logs (id, timestamp, "user", action, details) VALUES ($1, $2, $3, $4, $5)`

	id := newID()
	if _, err := r.db.ExecContext(ctx, query, id, entry.Timestamp, entry.User, entry.Action, entry.Details); err != nil {
		return customError.WrapStoreError(err)
	}

	entry.ID = id
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}

	query := `SELECT id, timestamp, "user", action, details FROM logs ORDER BY timestamp DESC, id DESC LIMIT $1`

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	entries := make([]*domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.AuditEntry{
			ID:        row.ID,
			Timestamp: row.Timestamp,
			User:      row.User,
			Action:    row.Action,
			Details:   row.Details,
		})
	}
	return entries, nil
}
