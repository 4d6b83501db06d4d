package service

import (
	"context"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"

	"github.com/sirupsen/logrus"
)

// AuditLog appends one entry per completed state change. Listeners registered
// with OnChange run after every successful append.
type AuditLog struct {
	repo      repository.AuditRepository
	clock     clock.Clock
	listeners []func(ctx context.Context)
}

func NewAuditLog(repo repository.AuditRepository, clk clock.Clock) *AuditLog {
	return &AuditLog{repo: repo, clock: clk}
}

// OnChange registers fn to be called after each recorded action.
func (a *AuditLog) OnChange(fn func(ctx context.Context)) {
	a.listeners = append(a.listeners, fn)
}

// Record appends an entry attributed to actor. The caller has already
// committed the change, so a failure here is reported but nothing is undone.
func (a *AuditLog) Record(ctx context.Context, actor domain.Session, action, details string) error {
	entry := &domain.AuditEntry{
		Timestamp: a.clock.Now().Format(time.RFC3339),
		User:      actor.Username,
		Action:    action,
		Details:   details,
	}

	if err := a.repo.Append(ctx, entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"user":   actor.Username,
			"action": action,
		}).WithError(err).Error("audit append failed after committed change")
		return err
	}

	for _, fn := range a.listeners {
		fn(ctx)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// means domain.DefaultLogLimit.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}
	entries, err := a.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// requireAdmin rejects non-admin sessions.
func requireAdmin(actor domain.Session, what string) error {
	if !actor.IsAdmin() {
		return customError.WrapPermissionDenied("only administrators can " + what)
	}
	return nil
}
