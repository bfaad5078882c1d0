package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the current health status of the database
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
}

// HealthChecker runs connectivity and pool checks against the manager
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger

	mu         sync.RWMutex
	isShutdown int32
	status     *HealthStatus

	consecutiveFailures int32

	stopCh    chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	checkInterval   time.Duration
	timeoutDuration time.Duration
	criticalTables  []string
}

// NewHealthChecker creates a health checker; a non-positive interval defaults to 30s
func NewHealthChecker(manager *Manager, interval time.Duration, logger *zap.Logger) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthChecker{
		manager:         manager,
		logger:          logger,
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
		checkInterval:   interval,
		timeoutDuration: 5 * time.Second,
		criticalTables:  []string{"badges", "user_badges", "activities"},
	}
}

// Check performs a health check and caches the result
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Status:    StatusHealthy,
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	if atomic.LoadInt32(&hc.isShutdown) == 1 {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, "database manager is shut down")
		return status
	}

	checkCtx, cancel := context.WithTimeout(ctx, hc.timeoutDuration)
	defer cancel()

	if err := hc.checkConnectivity(checkCtx); err != nil {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, err.Error())
	} else {
		hc.checkConnectionPool(status)
		hc.checkTableAccess(checkCtx, status)
	}

	status.ResponseTime = time.Since(start)
	status.Details["response_time_ms"] = status.ResponseTime.Milliseconds()

	if status.Status == StatusHealthy {
		atomic.StoreInt32(&hc.consecutiveFailures, 0)
	} else {
		failures := atomic.AddInt32(&hc.consecutiveFailures, 1)
		hc.logger.Warn("Database health check failed",
			zap.String("status", status.Status),
			zap.Strings("errors", status.Errors),
			zap.Int32("consecutive_failures", failures),
		)
	}

	hc.mu.Lock()
	hc.status = status
	hc.mu.Unlock()

	return status
}

func (hc *HealthChecker) checkConnectivity(ctx context.Context) error {
	if err := hc.manager.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (hc *HealthChecker) checkConnectionPool(status *HealthStatus) {
	stats := hc.manager.Stats()
	status.ConnectionCount = stats.OpenConnections
	status.Details["open_connections"] = stats.OpenConnections
	status.Details["in_use"] = stats.InUse
	status.Details["idle"] = stats.Idle
	status.Details["wait_count"] = stats.WaitCount

	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, "connection pool exhausted")
	}
}

func (hc *HealthChecker) checkTableAccess(ctx context.Context, status *HealthStatus) {
	for _, table := range hc.criticalTables {
		var exists bool
		err := hc.manager.DB().QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			status.Status = StatusDegraded
			status.Errors = append(status.Errors, fmt.Sprintf("table check %s: %v", table, err))
			continue
		}
		if !exists {
			status.Status = StatusDegraded
			status.Errors = append(status.Errors, fmt.Sprintf("table %s missing", table))
		}
	}
}

// StartMonitoring starts periodic health checks in the background
func (hc *HealthChecker) StartMonitoring() {
	hc.startOnce.Do(func() {
		go hc.run()
	})
}

func (hc *HealthChecker) run() {
	defer close(hc.stopped)

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-hc.stopCh:
			return
		case <-ticker.C:
			hc.Check(context.Background())
		}
	}
}

// Stop halts background monitoring and marks the checker as shut down
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() {
		atomic.StoreInt32(&hc.isShutdown, 1)
		close(hc.stopCh)
	})

	started := true
	hc.startOnce.Do(func() { started = false })
	if started {
		<-hc.stopped
	}
}

// GetLastStatus returns the last cached health status
func (hc *HealthChecker) GetLastStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

// IsHealthy reports whether the last check was healthy
func (hc *HealthChecker) IsHealthy() bool {
	status := hc.GetLastStatus()
	return status != nil && status.Status == StatusHealthy
}
