// Package jobs holds the periodic tasks run by cmd/scheduler.
package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/service"
	"github.com/bigongold/loan-manager/pkg/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds one run of any job.
const jobTimeout = 5 * time.Minute

type Runner struct {
	loans     *service.LoanService
	reports   *service.ReportService
	clock     clock.Clock
	exportDir string
}

func NewRunner(loans *service.LoanService, reports *service.ReportService, clk clock.Clock, exportDir string) *Runner {
	return &Runner{loans: loans, reports: reports, clock: clk, exportDir: exportDir}
}

// ScanOverdue logs every overdue loan and drops cached summaries so the
// dashboard reflects the new day. It returns the number of overdue loans.
func (r *Runner) ScanOverdue(ctx context.Context) (int, error) {
	today := utils.DateOnly(r.clock.Now())
	views, err := r.loans.ListLoans(ctx, domain.OverdueLoans(today))
	if err != nil {
		return 0, err
	}

	for _, v := range views {
		logrus.WithFields(logrus.Fields{
			"loan_id":      v.LoanID,
			"customer":     v.CustomerName,
			"next_payment": utils.FormatDate(*v.NextPayment),
			"days":         v.DaysRemaining,
		}).Warn("loan overdue")
	}

	r.reports.Invalidate(ctx)
	return len(views), nil
}

// ExportLoans writes the active loans to a dated spreadsheet in the export
// directory and returns its path.
func (r *Runner) ExportLoans(ctx context.Context) (string, error) {
	path := filepath.Join(r.exportDir, fmt.Sprintf("loans-%s.xlsx", utils.FormatDate(r.clock.Now())))
	n, err := r.reports.ExportLoans(ctx, domain.ActiveLoans(), path)
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{"path": path, "loans": n}).Info("loan export written")
	return path, nil
}

// Register schedules both jobs on c. Specs use the six-field (seconds) format.
func Register(c *cron.Cron, r *Runner, overdueSpec, exportSpec string) error {
	if _, err := c.AddFunc(overdueSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := r.ScanOverdue(ctx)
		if err != nil {
			logrus.WithError(err).Error("overdue scan failed")
			return
		}
		logrus.WithField("overdue", n).Info("overdue scan finished")
	}); err != nil {
		return fmt.Errorf("schedule overdue scan: %w", err)
	}

	if _, err := c.AddFunc(exportSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if _, err := r.ExportLoans(ctx); err != nil {
			logrus.WithError(err).Error("loan export failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule loan export: %w", err)
	}

	return nil
}
