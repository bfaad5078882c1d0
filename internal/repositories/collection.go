// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"badgehub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Badge     BadgeRepository
	UserBadge UserBadgeRepository
	Metrics   MetricsRepository
	Activity  ActivityRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		Badge:     NewBadgeRepository(db, logger),
		UserBadge: NewUserBadgeRepository(db, logger),
		Metrics:   NewMetricsRepository(db, logger),
		Activity:  NewActivityRepository(db, logger),
		db:        db,
		logger:    logger,
	}

	logger.Info("Repository collection initialized successfully")

	return collection, nil
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck reports database health and query metrics
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := make(map[string]interface{})

	dbHealth := c.db.Health(ctx)
	health["database"] = map[string]interface{}{
		"status":        dbHealth.Status,
		"response_time": dbHealth.ResponseTime.String(),
		"errors":        dbHealth.Errors,
	}

	start := time.Now()
	_, err := c.Badge.List(ctx)
	health["catalog"] = map[string]interface{}{
		"healthy":  err == nil,
		"duration": time.Since(start).String(),
	}

	metrics := c.db.Metrics()
	health["performance"] = map[string]interface{}{
		"query_count":        metrics.QueryCount,
		"error_count":        metrics.ErrorCount,
		"slow_query_count":   metrics.SlowQueryCount,
		"avg_query_duration": metrics.AvgQueryDuration.String(),
	}

	return health
}

// GetDB returns the database manager
func (c *Collection) GetDB() *database.Manager {
	return c.db
}
