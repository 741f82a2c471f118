package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/auth"
	"shopstock/internal/domain/reports"
	"shopstock/internal/domain/sales"
	"shopstock/internal/domain/stock"
	v1 "shopstock/internal/infrastructure/http/v1"
	"shopstock/internal/infrastructure/http/v1/handlers"
	"shopstock/internal/infrastructure/incident"
	"shopstock/internal/infrastructure/lock"
	"shopstock/internal/infrastructure/metrics"
	"shopstock/internal/infrastructure/storage/memory"
	"shopstock/internal/infrastructure/storage/postgres"
	"shopstock/internal/infrastructure/storage/postgres/inventory_repo"
	"shopstock/pkg/logger"
)

// App is the assembled service graph.
type App struct {
	Config  *Config
	Metrics *metrics.Metrics

	Batches *stock.Service
	Sales   *sales.Service
	Engine  *allocation.Engine
	Reports *reports.Service

	// Set only for the postgres store.
	Pool        *postgres.Pool
	TxManager   *postgres.TxManager
	Idempotency *postgres.IdempotencyStore

	Redis     redis.UniversalClient
	Incidents *incident.FileRecorder
	JWT       *auth.JWTService

	closers []func() error
}

type repositories struct {
	batches stock.Repository
	sales   sales.Repository
	records sales.AllocationRepository
}

// New builds every service from cfg. The caller must Close the result.
func New(ctx context.Context, cfg *Config) (_ *App, err error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	reversal, err := cfg.Reversal()
	if err != nil {
		return nil, err
	}
	cost, err := cfg.Cost()
	if err != nil {
		return nil, err
	}

	a.Incidents, err = incident.NewFileRecorder(cfg.IncidentDir)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { a.Incidents.Close(); return nil })

	opts := []allocation.Option{
		allocation.WithObserver(a.Metrics),
		allocation.WithIncidentRecorder(a.Incidents),
		allocation.WithReversalPolicy(reversal),
		allocation.WithCompensationTimeout(cfg.CompensationTimeout),
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.Redis = rdb
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		opts = append(opts, allocation.WithLocker(lock.NewRedisLocker(rdb, lock.Config{
			TTL:  cfg.LockTTL,
			Wait: cfg.LockWait,
		})))
		logger.Info(ctx, "using redis product locks", "addr", cfg.RedisAddr)
	}

	var repos repositories
	deps := allocation.Deps{}
	switch cfg.StoreBackend {
	case BackendPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		poolCfg.MaxConns = cfg.DBMaxConns
		poolCfg.MinConns = cfg.DBMinConns
		a.Pool, err = postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { a.Pool.Close(); return nil })

		a.TxManager = postgres.NewTxManager(a.Pool)
		repos = repositories{
			batches: inventory_repo.NewBatchRepo(a.TxManager),
			sales:   inventory_repo.NewSaleRepo(a.TxManager),
			records: inventory_repo.NewAllocationRepo(a.TxManager),
		}
		deps.TxManager = a.TxManager
		opts = append(opts, allocation.WithPublisher(postgres.NewOutboxPublisher(a.TxManager)))
		if cfg.IdempotencyEnabled {
			a.Idempotency = postgres.NewIdempotencyStore(a.TxManager, cfg.IdempotencyTTL)
		}
	default:
		store := memory.New()
		repos = repositories{
			batches: store.Batches(),
			sales:   store.Sales(),
			records: store.Allocations(),
		}
		logger.Warn(ctx, "using in-memory store; data is lost on restart")
	}

	deps.Batches = repos.batches
	deps.Sales = repos.sales
	deps.Records = repos.records

	a.Batches = stock.NewService(repos.batches)
	a.Sales = sales.NewService(repos.sales, repos.records)
	a.Engine = allocation.NewEngine(deps, opts...)
	a.Reports = reports.NewService(repos.batches, repos.sales, repos.records, cost)

	if cfg.JWTSecret != "" {
		a.JWT = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	} else {
		logger.Warn(ctx, "JWT_SECRET is empty; authentication is disabled")
	}

	logger.Info(ctx, "application assembled",
		"store", cfg.StoreBackend,
		"reversal_policy", reversal,
		"cost_policy", cost,
		"idempotency", a.Idempotency != nil,
	)
	return a, nil
}

// RouterConfig returns the HTTP router configuration for the app.
func (a *App) RouterConfig(log *logger.Logger) v1.RouterConfig {
	mode := gin.DebugMode
	if a.Config.IsProduction() {
		mode = gin.ReleaseMode
	}

	checks := map[string]handlers.Pinger{}
	if a.Pool != nil {
		checks["database"] = a.Pool
	}
	if a.Redis != nil {
		rdb := a.Redis
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	cfg := v1.RouterConfig{
		Mode:         mode,
		Logger:       log,
		Metrics:      a.Metrics,
		HealthChecks: checks,
		Batches:      a.Batches,
		Sales:        a.Sales,
		Engine:       a.Engine,
		Reports:      a.Reports,
	}
	// Typed nils must not reach the interface fields.
	if a.JWT != nil {
		cfg.JWTValidator = a.JWT
	}
	if a.Idempotency != nil {
		cfg.Idempotency = a.Idempotency
	}
	return cfg
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
