// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-bier-stube-secret"

type Config struct {
	Environment string
	LogLevel    string
	StoreDriver string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	AWS         AWSConfig
	I18n        I18nConfig
	Storefront  StorefrontConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	AllowOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
	Issuer         string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	OrderPlacedTopic   string
	OrderStatusTopic   string
	WriteTimeoutSecond int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BackupBucket    string
	BackupPrefix    string
}

type I18nConfig struct {
	DefaultLocale string
}

// StorefrontConfig holds the catalog, cart and order limits.
type StorefrontConfig struct {
	DefaultPageSize      int
	MaxPageSize          int
	EventsPageSize       int
	MaxCartItems         int
	MaxOrderItems        int
	MaxLineQuantity      int
	LowStockThreshold    int
	StaleCartAge         time.Duration
	ReportScanLimit      int
	Currency             string
	OrderNumberPrefix    string
	OrderNumberAttempts  int
	ProductCacheTTL      time.Duration
	FeaturedProductLimit int
}

// DefaultStorefrontConfig returns the limits used when no environment overrides are present.
func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		DefaultPageSize:      20,
		MaxPageSize:          50,
		EventsPageSize:       10,
		MaxCartItems:         50,
		MaxOrderItems:        100,
		MaxLineQuantity:      99,
		LowStockThreshold:    10,
		StaleCartAge:         30 * 24 * time.Hour,
		ReportScanLimit:      10000,
		Currency:             "USD",
		OrderNumberPrefix:    "BS",
		OrderNumberAttempts:  5,
		ProductCacheTTL:      5 * time.Minute,
		FeaturedProductLimit: 8,
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	defaults := DefaultStorefrontConfig()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "bier_stube"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
			Issuer:         getEnv("JWT_ISSUER", "bier-stube"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:            getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:            getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrderPlacedTopic:   getEnv("KAFKA_TOPIC_ORDER_PLACED", "orders.placed"),
			OrderStatusTopic:   getEnv("KAFKA_TOPIC_ORDER_STATUS", "orders.status_changed"),
			WriteTimeoutSecond: getEnvAsInt("KAFKA_WRITE_TIMEOUT", 10),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-2"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BackupBucket:    getEnv("AWS_BACKUP_BUCKET", "bier-stube-backups"),
			BackupPrefix:    getEnv("AWS_BACKUP_PREFIX", "backups"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Storefront: StorefrontConfig{
			DefaultPageSize:      getEnvAsInt("PRODUCTS_PER_PAGE", defaults.DefaultPageSize),
			MaxPageSize:          getEnvAsInt("MAX_PAGE_SIZE", defaults.MaxPageSize),
			EventsPageSize:       getEnvAsInt("EVENTS_PER_PAGE", defaults.EventsPageSize),
			MaxCartItems:         getEnvAsInt("MAX_CART_ITEMS", defaults.MaxCartItems),
			MaxOrderItems:        getEnvAsInt("MAX_ORDER_ITEMS", defaults.MaxOrderItems),
			MaxLineQuantity:      getEnvAsInt("MAX_LINE_QUANTITY", defaults.MaxLineQuantity),
			LowStockThreshold:    defaults.LowStockThreshold,
			StaleCartAge:         time.Duration(getEnvAsInt("STALE_CART_DAYS", 30)) * 24 * time.Hour,
			ReportScanLimit:      getEnvAsInt("REPORT_SCAN_LIMIT", defaults.ReportScanLimit),
			Currency:             getEnv("STORE_CURRENCY", defaults.Currency),
			OrderNumberPrefix:    getEnv("ORDER_NUMBER_PREFIX", defaults.OrderNumberPrefix),
			OrderNumberAttempts:  defaults.OrderNumberAttempts,
			ProductCacheTTL:      time.Duration(getEnvAsInt("PRODUCT_CACHE_TTL", 300)) * time.Second,
			FeaturedProductLimit: getEnvAsInt("FEATURED_PRODUCT_LIMIT", defaults.FeaturedProductLimit),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" && c.StoreDriver == "postgres" {
		return fmt.Errorf("database password is required in production")
	}

	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	sf := c.Storefront
	if sf.DefaultPageSize < 1 || sf.MaxPageSize < sf.DefaultPageSize {
		return fmt.Errorf("invalid page size bounds: default %d, max %d", sf.DefaultPageSize, sf.MaxPageSize)
	}

	if sf.MaxCartItems < 1 || sf.MaxOrderItems < 1 || sf.MaxLineQuantity < 1 {
		return fmt.Errorf("cart and order item limits must be positive")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when kafka is enabled")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

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
