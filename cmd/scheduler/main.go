package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bigongold/loan-manager/internal/app"
	"github.com/bigongold/loan-manager/internal/config"
	"github.com/bigongold/loan-manager/internal/jobs"
	"github.com/bigongold/loan-manager/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File}); err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer a.Close(context.Background())

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetLocation()))

	runner := jobs.NewRunner(a.Loans, a.Reports, a.Clock, cfg.Export.Dir)
	if err := jobs.Register(c, runner, cfg.Scheduler.OverdueSpec, cfg.Scheduler.ExportSpec); err != nil {
		logrus.Fatalf("Failed to schedule jobs: %v", err)
	}

	c.Start()
	logrus.WithFields(logrus.Fields{
		"overdue": cfg.Scheduler.OverdueSpec,
		"export":  cfg.Scheduler.ExportSpec,
		"tz":      cfg.Scheduler.Timezone,
	}).Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down scheduler")
	<-c.Stop().Done()
	logrus.Info("scheduler stopped")
}
