// Package config loads process configuration from environment variables and
// an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/recurra/billing/internal/gateway"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	GatewayLoginID        string
	GatewayTransactionKey string
	GatewayEnvironment    string
	GatewayEndpoint       string
	GatewayTimeout        time.Duration

	MetricsAddr string

	ReconcileInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "recurra"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "recurra"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		GatewayLoginID:        strings.TrimSpace(getenv("GATEWAY_API_LOGIN_ID", "")),
		GatewayTransactionKey: strings.TrimSpace(getenv("GATEWAY_TRANSACTION_KEY", "")),
		GatewayEnvironment:    strings.ToLower(getenv("GATEWAY_ENV", "sandbox")),
		GatewayEndpoint:       strings.TrimSpace(getenv("GATEWAY_ENDPOINT", "")),
		GatewayTimeout:        getenvDuration("GATEWAY_TIMEOUT", 30*time.Second),

		MetricsAddr: getenv("METRICS_ADDR", ":2112"),

		ReconcileInterval: getenvDuration("RECONCILE_INTERVAL", 24*time.Hour),
	}
}

// GatewayConfig derives the explicit gateway client configuration. There are
// no environment lookups inside the gateway client itself.
func (c Config) GatewayConfig() gateway.Config {
	env := gateway.Sandbox
	if c.GatewayEnvironment == "production" {
		env = gateway.Production
	}
	return gateway.Config{
		LoginID:        c.GatewayLoginID,
		TransactionKey: c.GatewayTransactionKey,
		Environment:    env,
		Endpoint:       c.GatewayEndpoint,
		RequestTimeout: c.GatewayTimeout,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
