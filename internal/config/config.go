// Package config loads the storefront settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingSecret = errors.New("JWT_SECRET must be set outside development")

type Config struct {
	HTTPPort           string
	HealthPort         string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	Development        bool
	LogLevel           string

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration
	CartIdleTTL   time.Duration

	MongoURI      string
	MongoDatabase string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ProductsDBPath string

	KafkaBrokers []string
	KafkaGroupID string
	OutboxTick   time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	GoogleMapsKey   string
	GeocodeRegion   string
	GeocodeDebounce time.Duration

	AdminEmails   []string
	CheckoutTTL   time.Duration
	AuthRateRPS   float64
	AuthRateBurst int
	CookieSecure  bool
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		HealthPort:         getEnv("HEALTH_PORT", "50051"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		Development:        getEnvBool("DEVELOPMENT", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartTTL:       getEnvDuration("CART_TTL", 30*24*time.Hour),
		CartIdleTTL:   getEnvDuration("CART_IDLE_TTL", 30*time.Minute),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "butchershop"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "orders"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ProductsDBPath: getEnv("PRODUCTS_DB_PATH", "products.db"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "storefront-live"),
		OutboxTick:   getEnvDuration("OUTBOX_TICK", time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		GoogleMapsKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
		GeocodeRegion:   getEnv("GEOCODE_REGION", "in"),
		GeocodeDebounce: getEnvDuration("GEOCODE_DEBOUNCE", time.Second),

		AdminEmails:   getEnvList("ADMIN_EMAILS"),
		CheckoutTTL:   getEnvDuration("CHECKOUT_TTL", 30*time.Minute),
		AuthRateRPS:   getEnvFloat("AUTH_RATE_RPS", 1),
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 5),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
	}

	if cfg.JWTSecret == "" {
		if !cfg.Development {
			return nil, ErrMissingSecret
		}
		cfg.JWTSecret = "dev-secret"
	}
	return cfg, nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if strings.ToLower(e) == email {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
