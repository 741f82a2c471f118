// Package app loads configuration and assembles the services shared by the
// server, worker and seed binaries.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"shopstock/internal/domain/allocation"
	"shopstock/internal/domain/reports"
	"shopstock/pkg/logger"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv             string        `envconfig:"APP_ENV" default:"development"`
	AppAddr            string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DBMaxConns   int32  `envconfig:"DB_MAX_CONNS" default:"20"`
	DBMinConns   int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// Empty RedisAddr keeps product locks in process.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	LockWait      time.Duration `envconfig:"LOCK_WAIT" default:"5s"`

	// Empty JWTSecret disables authentication.
	JWTSecret string `envconfig:"JWT_SECRET"`

	IdempotencyEnabled bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"true"`
	IdempotencyTTL     time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	ReversalPolicy      string        `envconfig:"REVERSAL_POLICY" default:"recorded"`
	CostPolicy          string        `envconfig:"COST_POLICY" default:"recorded"`
	IncidentDir         string        `envconfig:"INCIDENT_DIR" default:"var/incidents"`
	CompensationTimeout time.Duration `envconfig:"COMPENSATION_TIMEOUT" default:"10s"`

	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxInterval  time.Duration `envconfig:"OUTBOX_INTERVAL" default:"2s"`
	OutboxRetention time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	WorkerAddr      string        `envconfig:"WORKER_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if _, err := c.Reversal(); err != nil {
		return err
	}
	if _, err := c.Cost(); err != nil {
		return err
	}
	if c.CompensationTimeout <= 0 {
		return errors.New("COMPENSATION_TIMEOUT must be positive")
	}
	return nil
}

// Reversal returns the parsed reversal policy.
func (c *Config) Reversal() (allocation.ReversalPolicy, error) {
	return allocation.ParseReversalPolicy(c.ReversalPolicy)
}

// Cost returns the parsed default cost policy.
func (c *Config) Cost() (reports.CostPolicy, error) {
	return reports.ParseCostPolicy(c.CostPolicy)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// NewLogger builds the process logger and makes it the package default.
func (c *Config) NewLogger() (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       c.LogLevel,
		Development: !c.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	return log, nil
}

// UsesPostgres reports whether the postgres store is configured.
func (c *Config) UsesPostgres() bool {
	return c.StoreBackend == BackendPostgres
}
