// Package app wires configuration, storage and services together for the
// command-line entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/bigongold/loan-manager/internal/cache"
	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/config"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/export"
	"github.com/bigongold/loan-manager/internal/repository"
	"github.com/bigongold/loan-manager/internal/repository/memory"
	"github.com/bigongold/loan-manager/internal/repository/mongodb"
	"github.com/bigongold/loan-manager/internal/repository/postgres"
	"github.com/bigongold/loan-manager/internal/service"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type App struct {
	Config *config.Config
	Store  *repository.Store
	Redis  *goredis.Client
	Clock  clock.Clock

	Audit      *service.AuditLog
	Identity   *service.IdentityService
	Loans      *service.LoanService
	Repayments *service.RepaymentService
	Users      *service.UserService
	Reports    *service.ReportService
}

// OpenStore connects to the configured driver. The connection is verified
// before returning so an unreachable database fails startup.
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Store.Timeout)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return mongodb.NewStore(client, db, cfg.GetLocation()), nil

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}, cfg.Store.Timeout)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return postgres.NewStore(db, cfg.GetLocation()), nil

	case config.DriverMemory:
		logrus.Warn("using in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// New opens the store and optional redis cache and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Store: store, Clock: clock.New(cfg.GetLocation())}

	var summaries service.SummaryCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, summaries will not be cached")
		} else {
			a.Redis = client
			summaries = cache.NewViewCache[domain.Summary](client, cfg.Redis.SummaryTTL)
		}
	}

	a.Audit = service.NewAuditLog(store.Logs, a.Clock)
	a.Identity = service.NewIdentityService(store.Users)
	a.Loans = service.NewLoanService(store.Loans, store.Payments, a.Identity, a.Audit, a.Clock, cfg)
	a.Repayments = service.NewRepaymentService(store.Loans, store.Payments, a.Audit, a.Clock)
	a.Users = service.NewUserService(store.Users, a.Audit)
	a.Reports = service.NewReportService(store.Loans, store.Payments, a.Audit, a.Clock, summaries,
		export.NewXLSXWriter(""), export.NewPDFRenderer(a.Clock))

	return a, nil
}

// Close releases the store and cache connections.
func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("closing redis client")
		}
	}
	if a.Store.Close != nil {
		if err := a.Store.Close(ctx); err != nil {
			logrus.WithError(err).Warn("closing store")
		}
	}
}
