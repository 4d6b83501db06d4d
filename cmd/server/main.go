package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bigongold/loan-manager/internal/app"
	"github.com/bigongold/loan-manager/internal/config"
	"github.com/bigongold/loan-manager/internal/handler"
	"github.com/bigongold/loan-manager/internal/logger"
	"github.com/bigongold/loan-manager/internal/session"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File}); err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer a.Close(context.Background())

	if cfg.Session.BootstrapAdmin != "" {
		if err := a.Users.EnsureAdmin(ctx, cfg.Session.BootstrapAdmin, cfg.Session.BootstrapPassword); err != nil {
			logrus.Fatalf("Failed to create bootstrap admin: %v", err)
		}
	}

	secret := cfg.Session.Secret
	if secret == "" {
		// Tokens will not survive a restart.
		secret = uuid.NewString()
		logrus.Warn("SESSION_SECRET not set, using a random secret")
	}
	signer := session.NewSigner(secret, cfg.Session.TTL)

	router := handler.NewRouter(handler.Handlers{
		Signer:      signer,
		GuestWrites: cfg.Session.GuestWrites,
		Sessions:    handler.NewSessionHandler(a.Identity, signer),
		Loans:       handler.NewLoanHandler(a.Loans, a.Reports),
		Payments:    handler.NewPaymentHandler(a.Repayments),
		Reports:     handler.NewReportHandler(a.Reports),
		Users:       handler.NewUserHandler(a.Users),
		Health:      handler.NewHealthHandler(a.Store.Ping, a.Redis, cfg.Health.Timeout),
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.CORSMiddleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{"addr": server.Addr, "store": cfg.Store.Driver}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("server exited")
}
