package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Order code counter kinds.
const (
	CounterPostgres = "postgres"
	CounterRedis    = "redis"
	CounterNone     = "none"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Redis      RedisConfig
	Orders     OrderConfig
	Commission CommissionConfig
	Pricing    PricingConfig
	S3         S3Config
	Kafka      KafkaConfig
	Throttle   ThrottleConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Enabled bool
	URL     string
}

// OrderConfig holds order intake limits and order code settings.
type OrderConfig struct {
	MinQuantity     int
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxTotal        int64
	CodeMaxAttempts int
	CodeTimezone    string
	CodeCounter     string // "postgres", "redis" or "none"
	AtomicWrites    bool   // order and items in one transaction instead of insert-then-compensate
}

// CommissionConfig holds commission settings.
type CommissionConfig struct {
	FallbackRate int64 // minor units per carton
}

// PricingConfig points at the tier schedule.
type PricingConfig struct {
	TiersFile string
}

// S3Config holds AWS S3 configuration for the tier schedule.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "pricing/")
}

// KafkaConfig holds event publisher configuration.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// ThrottleConfig holds the per-client HTTP throttle.
type ThrottleConfig struct {
	RatePerMinute int
	Burst         int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: loadDatabase(),
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Orders: OrderConfig{
			MinQuantity:     getEnvAsInt("ORDER_MIN_QUANTITY", 5),
			RateLimitMax:    getEnvAsInt("ORDER_RATE_LIMIT_MAX", 3),
			RateLimitWindow: getEnvAsDuration("ORDER_RATE_LIMIT_WINDOW", 60*time.Second),
			MaxTotal:        getEnvAsInt64("ORDER_MAX_TOTAL", 999999999999),
			CodeMaxAttempts: getEnvAsInt("ORDER_CODE_MAX_ATTEMPTS", 10),
			CodeTimezone:    getEnv("ORDER_CODE_TIMEZONE", "UTC"),
			CodeCounter:     getEnv("ORDER_CODE_COUNTER", CounterPostgres),
			AtomicWrites:    getEnvAsBool("ORDER_ATOMIC_WRITES", true),
		},
		Commission: CommissionConfig{
			FallbackRate: getEnvAsInt64("COMMISSION_FALLBACK_RATE", 10000),
		},
		Pricing: PricingConfig{
			TiersFile: getEnv("PRICING_TIERS_FILE", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "pricing/"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "order-ledger.events"),
		},
		Throttle: ThrottleConfig{
			RatePerMinute: getEnvAsInt("HTTP_RATE_PER_MINUTE", 120),
			Burst:         getEnvAsInt("HTTP_RATE_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDatabase loads only the database settings, for tools that need no other configuration.
func LoadDatabase() (DatabaseConfig, error) {
	db := loadDatabase()
	if err := db.validate(); err != nil {
		return DatabaseConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "orderledger"),
		MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
		MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
		MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if err := c.Orders.validate(); err != nil {
		return err
	}

	if c.Orders.CodeCounter == CounterRedis && !c.Redis.Enabled {
		return fmt.Errorf("redis must be enabled to use the redis order code counter")
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when redis is enabled")
	}

	if c.Commission.FallbackRate < 0 {
		return fmt.Errorf("commission fallback rate cannot be negative")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.Throttle.RatePerMinute < 1 || c.Throttle.Burst < 1 {
		return fmt.Errorf("throttle rate and burst must be at least 1")
	}

	return nil
}

func (o *OrderConfig) validate() error {
	if o.MinQuantity < 1 {
		return fmt.Errorf("order min quantity must be at least 1")
	}

	if o.RateLimitMax < 1 {
		return fmt.Errorf("order rate limit max must be at least 1")
	}

	if o.RateLimitWindow <= 0 {
		return fmt.Errorf("order rate limit window must be positive")
	}

	if o.MaxTotal < 1 {
		return fmt.Errorf("order max total must be at least 1")
	}

	if o.CodeMaxAttempts < 1 {
		return fmt.Errorf("order code max attempts must be at least 1")
	}

	switch o.CodeCounter {
	case CounterPostgres, CounterRedis, CounterNone:
	default:
		return fmt.Errorf("invalid order code counter: %s (must be postgres, redis, or none)", o.CodeCounter)
	}

	if _, err := time.LoadLocation(o.CodeTimezone); err != nil {
		return fmt.Errorf("invalid order code timezone: %s", o.CodeTimezone)
	}

	return nil
}

func (d *DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", d.Port)
	}

	if d.User == "" {
		return fmt.Errorf("database user is required")
	}

	if d.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if d.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if d.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if d.MinConnections > d.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// Location returns the time zone order code dates are computed in.
func (o *OrderConfig) Location() *time.Location {
	loc, err := time.LoadLocation(o.CodeTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a default value.
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration ("60s", "5m") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable or returns a default value.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
