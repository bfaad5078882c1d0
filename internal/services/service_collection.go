// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/events"
	"badgehub/internal/repositories"

	"go.uber.org/zap"
)

// ServiceCollection holds the badge services and their infrastructure
type ServiceCollection struct {
	// Core Services
	BadgeService        BadgeService         `json:"-"`
	CatalogSeeder       *CatalogSeeder       `json:"-"`
	NotificationService *NotificationService `json:"-"`
	Evaluator           *Evaluator           `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache     cache.Cache       `json:"-"`
	EventBus  events.EventBus   `json:"-"`
	Logger    *zap.Logger       `json:"-"`
	Config    *config.Config    `json:"-"`
	DBManager *database.Manager `json:"-"`

	// Service Management
	healthCheckers map[string]HealthChecker `json:"-"`
	startTime      time.Time                `json:"-"`
	shutdown       chan struct{}            `json:"-"`
	shutdownOnce   sync.Once                `json:"-"`
	wg             sync.WaitGroup           `json:"-"`
	mu             sync.RWMutex             `json:"-"`
	initialized    bool                     `json:"-"`
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status          string                   `json:"status"`
	Timestamp       time.Time                `json:"timestamp"`
	Dependencies    map[string]ServiceStatus `json:"dependencies"`
	Uptime          time.Duration            `json:"uptime"`
	TotalServices   int                      `json:"total_services"`
	HealthyServices int                      `json:"healthy_services"`
	Issues          []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, degraded, unhealthy
	LastCheck    time.Time     `json:"last_check"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// HealthChecker interface for dependency health checks
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	ServiceName() string
}

// healthCheckFunc adapts a function to HealthChecker
type healthCheckFunc struct {
	name  string
	check func(ctx context.Context) error
}

func (h healthCheckFunc) HealthCheck(ctx context.Context) error { return h.check(ctx) }
func (h healthCheckFunc) ServiceName() string                   { return h.name }

// NewServiceCollection creates the service collection
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager:      dbManager,
		Config:         cfg,
		Logger:         logger,
		healthCheckers: make(map[string]HealthChecker),
		startTime:      time.Now(),
		shutdown:       make(chan struct{}),
	}

	// Initialize in dependency order
	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := collection.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	collection.initializeMonitoring()

	collection.initialized = true
	logger.Info("Service collection initialized successfully",
		zap.Int("health_checkers", len(collection.healthCheckers)),
	)

	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

// initializeInfrastructure sets up cache and event bus
func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	cacheCfg := sc.Config.Cache
	c, err := cache.NewCache(&cache.Config{
		Provider:        cacheCfg.Provider,
		TTL:             cacheCfg.DefaultTTL,
		MaxKeys:         cacheCfg.MaxKeys,
		CleanupInterval: cacheCfg.CleanupInterval,
		RedisURL:        cacheCfg.RedisURL,
		RedisDB:         cacheCfg.RedisDB,
		RedisPassword:   cacheCfg.RedisPassword,
		PoolSize:        cacheCfg.PoolSize,
	}, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	busCfg := events.DefaultEventBusConfig()
	if sc.Config.Badges.NotifyBufferSize > 0 {
		busCfg.BufferSize = sc.Config.Badges.NotifyBufferSize
	}
	sc.EventBus = events.NewInMemoryEventBus(busCfg, sc.Logger)
	audit := events.NewAuditHandler("service_collection.badge_audit", sc.Logger.Named("audit"))
	if err := sc.EventBus.SubscribePattern(events.BadgeEventPattern, audit); err != nil {
		return fmt.Errorf("failed to subscribe audit handler: %w", err)
	}

	sc.Logger.Info("Infrastructure components initialized",
		zap.String("cache_provider", cacheCfg.Provider),
	)
	return nil
}

// initializeRepositories sets up repository layer
func (sc *ServiceCollection) initializeRepositories() error {
	sc.Logger.Info("Initializing repositories")

	var err error
	sc.Repositories, err = repositories.NewCollection(sc.DBManager, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}

	sc.Logger.Info("Repositories initialized")
	return nil
}

// initializeServices sets up service layer with dependency injection
func (sc *ServiceCollection) initializeServices() error {
	sc.Logger.Info("Initializing services")

	badgeCfg := sc.Config.Badges
	sc.Evaluator = NewEvaluator(badgeCfg.PlatformLaunch)
	if badgeCfg.PlatformLaunch.IsZero() {
		sc.Logger.Warn("Platform launch date not set, earlyUser badges cannot be earned")
	}

	var err error
	sc.BadgeService, err = NewBadgeService(BadgeServiceDeps{
		Badges:     sc.Repositories.Badge,
		UserBadges: sc.Repositories.UserBadge,
		Metrics:    sc.Repositories.Metrics,
		Activities: sc.Repositories.Activity,
		Cache:      sc.Cache,
		EventBus:   sc.EventBus,
		Evaluator:  sc.Evaluator,
	}, &BadgeServiceConfig{
		EvalConcurrency:  badgeCfg.EvalConcurrency,
		CacheTTL:         badgeCfg.CacheTTL,
		LeaderboardLimit: badgeCfg.LeaderboardLimit,
	}, sc.Logger.Named("badges"))
	if err != nil {
		return fmt.Errorf("failed to create badge service: %w", err)
	}

	sc.CatalogSeeder = NewCatalogSeeder(sc.Repositories.Badge, sc.EventBus, sc.Logger.Named("catalog"))

	sc.Logger.Info("All services initialized")
	return nil
}

// initializeMonitoring registers dependency health checkers
func (sc *ServiceCollection) initializeMonitoring() {
	sc.registerHealthChecker(healthCheckFunc{name: "database", check: func(ctx context.Context) error {
		status := sc.DBManager.Health(ctx)
		if status.Status == database.StatusUnhealthy {
			return fmt.Errorf("database unhealthy: %v", status.Errors)
		}
		return nil
	}})
	sc.registerHealthChecker(healthCheckFunc{name: "cache", check: sc.Cache.Health})
	sc.registerHealthChecker(healthCheckFunc{name: "event_bus", check: func(ctx context.Context) error {
		return sc.EventBus.Health()
	}})
}

// RegisterNotifier wires live badge notifications to the given notifier
func (sc *ServiceCollection) RegisterNotifier(notifier Notifier) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.NotificationService != nil {
		return fmt.Errorf("notifier already registered")
	}

	service := NewNotificationService(notifier, sc.BadgeService, sc.Logger.Named("notifications"))
	if err := service.Register(sc.EventBus); err != nil {
		return err
	}
	sc.NotificationService = service
	return nil
}

// ===============================
// SERVICE ACCESS METHODS
// ===============================

// GetBadgeService returns the badge service
func (sc *ServiceCollection) GetBadgeService() BadgeService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.BadgeService
}

// GetCatalogSeeder returns the catalog seeder
func (sc *ServiceCollection) GetCatalogSeeder() *CatalogSeeder {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.CatalogSeeder
}

// GetEventBus returns the event bus
func (sc *ServiceCollection) GetEventBus() events.EventBus {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.EventBus
}

// ===============================
// HEALTH
// ===============================

// HealthCheck checks every registered dependency
func (sc *ServiceCollection) HealthCheck(ctx context.Context) (*ServiceHealth, error) {
	sc.Logger.Debug("Performing service collection health check")

	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime),
		Issues:       []string{},
	}

	sc.mu.RLock()
	checkers := make([]HealthChecker, 0, len(sc.healthCheckers))
	for _, checker := range sc.healthCheckers {
		checkers = append(checkers, checker)
	}
	sc.mu.RUnlock()

	healthyCount := 0
	for _, checker := range checkers {
		status := sc.checkServiceHealth(ctx, checker)
		health.Dependencies[status.Name] = status

		if status.Status == "healthy" {
			healthyCount++
		} else {
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", status.Name, status.Error))
		}
	}

	health.TotalServices = len(checkers)
	health.HealthyServices = healthyCount

	// The database is the only dependency the badge ledger cannot work without
	switch {
	case len(health.Issues) == 0:
		health.Status = "healthy"
	case health.Dependencies["database"].Status != "healthy":
		health.Status = "unhealthy"
	default:
		health.Status = "degraded"
	}

	sc.Logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.Int("healthy_services", healthyCount),
		zap.Int("issues", len(health.Issues)),
	)

	return health, nil
}

// ===============================
// SERVICE LIFECYCLE MANAGEMENT
// ===============================

// Start starts the event bus, seeds the catalog when configured and begins
// background health monitoring
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if !sc.initialized {
		return fmt.Errorf("service collection not initialized")
	}

	sc.Logger.Info("Starting service collection")

	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	if sc.Config.Badges.SeedOnStart {
		if _, err := sc.CatalogSeeder.SeedFile(ctx, sc.Config.Badges.CatalogPath); err != nil {
			return fmt.Errorf("failed to seed badge catalog: %w", err)
		}
	}

	if sc.Config.IsProduction() {
		sc.wg.Add(1)
		go sc.startHealthCheckMonitoring()
	}

	sc.Logger.Info("Service collection started successfully")
	return nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	sc.shutdownOnce.Do(func() { close(sc.shutdown) })

	var shutdownErrors []error

	sc.mu.Lock()
	notifications := sc.NotificationService
	sc.NotificationService = nil
	sc.mu.Unlock()
	if notifications != nil {
		if err := notifications.Unregister(sc.EventBus); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("notification unsubscribe: %w", err))
		}
	}

	if err := sc.EventBus.Stop(ctx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus shutdown: %w", err))
	}

	// Wait for background processes to finish
	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sc.Logger.Info("All background processes stopped")
	case <-ctx.Done():
		sc.Logger.Warn("Shutdown timeout exceeded")
		shutdownErrors = append(shutdownErrors, fmt.Errorf("shutdown timeout exceeded"))
	}

	if err := sc.Cache.Close(); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
	}

	if err := sc.DBManager.Close(); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
	}

	if len(shutdownErrors) > 0 {
		sc.Logger.Error("Errors occurred during shutdown",
			zap.Int("error_count", len(shutdownErrors)),
			zap.Errors("errors", shutdownErrors),
		)
		return fmt.Errorf("shutdown completed with %d errors", len(shutdownErrors))
	}

	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}

// ===============================
// PRIVATE HELPER METHODS
// ===============================

// registerHealthChecker registers a health checker
func (sc *ServiceCollection) registerHealthChecker(hc HealthChecker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.healthCheckers[hc.ServiceName()] = hc
}

// checkServiceHealth checks the health of an individual dependency
func (sc *ServiceCollection) checkServiceHealth(ctx context.Context, checker HealthChecker) ServiceStatus {
	start := time.Now()

	status := ServiceStatus{
		Name:      checker.ServiceName(),
		Status:    "healthy",
		LastCheck: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}

	status.ResponseTime = time.Since(start)

	return status
}

// startHealthCheckMonitoring logs degraded health every 30 seconds
func (sc *ServiceCollection) startHealthCheckMonitoring() {
	defer sc.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			health, err := sc.HealthCheck(ctx)
			cancel()

			if err != nil {
				sc.Logger.Error("Health check failed", zap.Error(err))
			} else if health.Status != "healthy" {
				sc.Logger.Warn("Service health degraded",
					zap.String("status", health.Status),
					zap.Strings("issues", health.Issues),
				)
			}

		case <-sc.shutdown:
			sc.Logger.Info("Health check monitoring stopped")
			return
		}
	}
}

// IsInitialized reports whether construction completed
func (sc *ServiceCollection) IsInitialized() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.initialized
}
