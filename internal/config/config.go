package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Badges   BadgeConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Environment     string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	AllowedOrigins  []string
}

// DatabaseConfig holds connection pool and migration settings
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	HealthCheckInterval time.Duration
	MigrationsPath      string
	AutoMigrate         bool

	// Retry
	MaxRetryAttempts int
	RetryBackoff     time.Duration
	ConnectTimeout   time.Duration
}

// CacheConfig selects and tunes the cache provider
type CacheConfig struct {
	Provider        string // memory, redis
	RedisURL        string
	RedisDB         int
	RedisPassword   string
	PoolSize        int
	DefaultTTL      time.Duration
	MaxKeys         int
	CleanupInterval time.Duration
}

// BadgeConfig holds badge evaluation settings
type BadgeConfig struct {
	CatalogPath string
	SeedOnStart bool

	// PlatformLaunch anchors the earlyUser criterion. Zero means the
	// criterion never qualifies.
	PlatformLaunch time.Time

	EvalConcurrency  int
	CacheTTL         time.Duration
	LeaderboardLimit int
	NotifyBufferSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, loading .env files outside production
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	badges, err := loadBadgeConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server:   loadServerConfig(env),
		Database: loadDatabaseConfig(env),
		Cache:    loadCacheConfig(),
		Badges:   badges,
		Logging:  loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// ===============================
// SECTION LOADERS
// ===============================

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:            getEnv("PORT", "9000"),
		Environment:     env,
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		AllowedOrigins:  getListEnv("WS_ALLOWED_ORIGINS", nil),
	}

	switch env {
	case "production":
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 25*time.Second)
	case "staging":
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 20*time.Second)
	default:
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 10*time.Second)
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		URL:                 getEnv("DATABASE_URL", ""),
		MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 0),
		ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", 0),
		ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 0),
		HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		AutoMigrate:         getBoolEnv("DB_AUTO_MIGRATE", true),
		MaxRetryAttempts:    getIntEnv("DB_MAX_RETRY_ATTEMPTS", 5),
		RetryBackoff:        getDurationEnv("DB_RETRY_BACKOFF", time.Second),
		ConnectTimeout:      getDurationEnv("DB_CONNECT_TIMEOUT", 10*time.Second),
	}

	optimizeDatabaseForEnvironment(&config, env)
	return config
}

// optimizeDatabaseForEnvironment fills pool settings that were not set explicitly
func optimizeDatabaseForEnvironment(config *DatabaseConfig, env string) {
	var open, idle int
	var lifetime, slow time.Duration

	switch env {
	case "production":
		open, idle, lifetime, slow = 50, 20, 15*time.Minute, 200*time.Millisecond
	case "staging":
		open, idle, lifetime, slow = 25, 10, 10*time.Minute, 100*time.Millisecond
	default:
		open, idle, lifetime, slow = 10, 5, 5*time.Minute, 50*time.Millisecond
	}

	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = open
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = idle
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = lifetime
	}
	if config.SlowQueryThreshold == 0 {
		config.SlowQueryThreshold = slow
	}
	if config.MaxIdleConns > config.MaxOpenConns {
		config.MaxIdleConns = config.MaxOpenConns
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Provider:        getEnv("CACHE_PROVIDER", "memory"),
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		PoolSize:        getIntEnv("REDIS_POOL_SIZE", 10),
		DefaultTTL:      getDurationEnv("CACHE_TTL", 15*time.Minute),
		MaxKeys:         getIntEnv("CACHE_MAX_KEYS", 10000),
		CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func loadBadgeConfig() (BadgeConfig, error) {
	launch, err := getTimeEnv("BADGE_PLATFORM_LAUNCH")
	if err != nil {
		return BadgeConfig{}, err
	}

	return BadgeConfig{
		CatalogPath:      getEnv("BADGE_CATALOG_PATH", "./badges.yaml"),
		SeedOnStart:      getBoolEnv("BADGE_SEED_ON_START", false),
		PlatformLaunch:   launch,
		EvalConcurrency:  getIntEnv("BADGE_EVAL_CONCURRENCY", 4),
		CacheTTL:         getDurationEnv("BADGE_CACHE_TTL", 5*time.Minute),
		LeaderboardLimit: getIntEnv("BADGE_LEADERBOARD_LIMIT", 50),
		NotifyBufferSize: getIntEnv("BADGE_NOTIFY_BUFFER", 16),
	}, nil
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// ===============================
// VALIDATION
// ===============================

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.Badges.Validate(); err != nil {
		return fmt.Errorf("badge config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}
	return nil
}

// Validate validates database configuration
func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}
	if d.MaxRetryAttempts < 0 {
		return fmt.Errorf("MaxRetryAttempts cannot be negative")
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "memory", "":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis provider")
		}
	default:
		return fmt.Errorf("unsupported cache provider %q", c.Provider)
	}
	return nil
}

// Validate validates badge configuration
func (b *BadgeConfig) Validate() error {
	if b.EvalConcurrency <= 0 {
		return fmt.Errorf("BADGE_EVAL_CONCURRENCY must be positive")
	}
	if b.LeaderboardLimit <= 0 || b.LeaderboardLimit > 500 {
		return fmt.Errorf("BADGE_LEADERBOARD_LIMIT must be between 1 and 500")
	}
	if b.SeedOnStart && b.CatalogPath == "" {
		return fmt.Errorf("BADGE_CATALOG_PATH is required when seeding on start")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ===============================
// HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getTimeEnv accepts RFC3339 or a plain date. An unset variable yields the zero time.
func getTimeEnv(key string) (time.Time, error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: cannot parse %q as RFC3339 or YYYY-MM-DD", key, value)
}

func getDefaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func getDefaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}
