package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"badgehub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// InitDB connects to postgres, runs migrations and waits for the schema to be healthy.
// Connection and migration attempts are retried with exponential backoff.
func InitDB(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Starting database initialization",
		zap.String("environment", cfg.Server.Environment))

	var manager *Manager
	connect := func() error {
		m, err := NewManager(&cfg.Database, logger)
		if err != nil {
			return err
		}
		manager = m
		return nil
	}
	if err := retry(connect, &cfg.Database, logger, "connect"); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	if cfg.Database.AutoMigrate {
		migrationsPath := determineMigrationsPath(cfg.Database.MigrationsPath)
		migrateOp := func() error {
			return manager.Migrate(migrationsPath)
		}
		if err := retry(migrateOp, &cfg.Database, logger, "migrate"); err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), getHealthTimeoutForEnvironment(cfg.Server.Environment))
	defer cancel()

	if err := waitForHealth(ctx, manager, logger); err != nil {
		manager.Close()
		return nil, fmt.Errorf("database failed to become healthy: %w", err)
	}

	manager.StartMonitoring()

	stats := manager.Stats()
	logger.Info("Database initialized successfully",
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("max_open_connections", stats.MaxOpenConnections),
	)

	return manager, nil
}

func retry(op backoff.Operation, cfg *config.DatabaseConfig, logger *zap.Logger, stage string) error {
	attempts := cfg.MaxRetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if cfg.RetryBackoff > 0 {
		b.InitialInterval = cfg.RetryBackoff
	}

	return backoff.RetryNotify(
		op,
		backoff.WithMaxRetries(b, uint64(attempts-1)),
		func(err error, d time.Duration) {
			logger.Warn("Database attempt failed, retrying",
				zap.String("stage", stage),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
}

func waitForHealth(ctx context.Context, manager *Manager, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second

	check := func() error {
		status := manager.Health(ctx)
		if status.Status == StatusHealthy {
			logger.Info("Database is healthy", zap.Duration("response_time", status.ResponseTime))
			return nil
		}
		return fmt.Errorf("database %s: %v", status.Status, status.Errors)
	}

	return backoff.Retry(check, backoff.WithContext(b, ctx))
}

func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	for _, path := range []string{"./migrations", "../migrations", "../../migrations"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}

func getHealthTimeoutForEnvironment(environment string) time.Duration {
	switch environment {
	case "production":
		return 60 * time.Second
	case "staging":
		return 45 * time.Second
	default:
		return 30 * time.Second
	}
}

// ExecuteTransaction runs fn inside a transaction, rolling back on error or panic
func ExecuteTransaction(ctx context.Context, m *Manager, fn func(*sql.Tx) error) error {
	tx, err := m.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
