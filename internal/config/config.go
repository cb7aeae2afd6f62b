package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	Order    OrderConfig
	Redis    RedisConfig
	Notify   NotifyConfig
	Email    EmailConfig
	Payment  PaymentConfig
	Outbox   OutboxConfig
	Coupon   CouponConfig
	S3       S3Config
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
	RunMigrations   bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level      string
	Format     string // "json" or "console"
	File       string // optional rotated log file
	MaxSizeMB  int
	MaxBackups int
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	JWTSecret string
}

// PricingConfig holds the static business rules used to price a cart.
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              string
}

// OrderConfig holds order numbering configuration.
type OrderConfig struct {
	NumberPrefix string
}

// RedisConfig holds the cart summary cache configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NotifyConfig selects and configures the order notification transport.
type NotifyConfig struct {
	Transport    string // "none", "kafka" or "rabbitmq"
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

// EmailConfig holds the transactional email API configuration.
type EmailConfig struct {
	APIURL string
	APIKey string
	From   string
}

// PaymentConfig holds Razorpay API credentials.
type PaymentConfig struct {
	APIURL    string
	KeyID     string
	KeySecret string
}

// OutboxConfig controls the side-effect dispatcher.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// CouponConfig lists the coupon files to load at startup.
type CouponConfig struct {
	Files []string
}

// S3Config holds AWS S3 configuration for coupon files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "coupons/")
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "liftcart"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Pricing: PricingConfig{
			TaxRate:               getEnvAsDecimal("TAX_RATE", decimal.RequireFromString("0.18")),
			FreeShippingThreshold: getEnvAsDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(5000)),
			FlatShippingFee:       getEnvAsDecimal("FLAT_SHIPPING_FEE", decimal.NewFromInt(100)),
			Currency:              getEnv("CURRENCY", "INR"),
		},
		Order: OrderConfig{
			NumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "ORD-"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("SUMMARY_CACHE_TTL", 10*time.Minute),
		},
		Notify: NotifyConfig{
			Transport:    getEnv("NOTIFY_TRANSPORT", "none"),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "order-notifications"),
			AMQPURL:      getEnv("AMQP_URL", ""),
			AMQPExchange: getEnv("AMQP_EXCHANGE", "orders"),
		},
		Email: EmailConfig{
			APIURL: getEnv("EMAIL_API_URL", ""),
			APIKey: getEnv("EMAIL_API_KEY", ""),
			From:   getEnv("EMAIL_FROM", "orders@liftcart.example"),
		},
		Payment: PaymentConfig{
			APIURL:    getEnv("RAZORPAY_API_URL", "https://api.razorpay.com/v1"),
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		},
		Outbox: OutboxConfig{
			PollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
			MaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 8),
		},
		Coupon: CouponConfig{
			Files: getEnvAsList("COUPON_FILES", nil),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "ap-south-1"),
			Prefix:  getEnv("S3_PREFIX", "coupons/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
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

	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid tax rate: %s (must be between 0 and 1)", c.Pricing.TaxRate)
	}

	if c.Pricing.FreeShippingThreshold.IsNegative() || c.Pricing.FlatShippingFee.IsNegative() {
		return fmt.Errorf("shipping threshold and fee cannot be negative")
	}

	if c.Pricing.Currency == "" {
		return fmt.Errorf("currency is required")
	}

	switch c.Notify.Transport {
	case "none":
	case "kafka":
		if len(c.Notify.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka brokers are required when notify transport is kafka")
		}
	case "rabbitmq":
		if c.Notify.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required when notify transport is rabbitmq")
		}
	default:
		return fmt.Errorf("invalid notify transport: %s (must be none, kafka, or rabbitmq)", c.Notify.Transport)
	}

	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("outbox batch size must be at least 1")
	}

	if c.Outbox.MaxAttempts < 1 {
		return fmt.Errorf("outbox max attempts must be at least 1")
	}

	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDecimal retrieves an environment variable as a decimal or returns a default value.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
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
