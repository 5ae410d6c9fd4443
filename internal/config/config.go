package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

type Config struct {
	// HTTP Server
	Host           string
	Port           string
	TrustedProxies []string
	RateLimit      int

	// MCP
	Transport string

	// Database
	SQLiteDBPath       string
	SQLiteBusyTimeout  time.Duration
	SQLiteMaxOpenConns int

	// Category catalog
	CategoriesPath  string
	CatalogCacheTTL time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8000"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		Transport: getEnv("MCP_TRANSPORT", TransportHTTP),

		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "/tmp/expenses.db"),
		SQLiteBusyTimeout:  getEnvDuration("SQLITE_BUSY_TIMEOUT", 3*time.Second),
		SQLiteMaxOpenConns: getEnvInt("SQLITE_MAX_OPEN_CONNS", 8),

		CategoriesPath:  getEnv("CATEGORIES_PATH", ""),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Addr joins Host and Port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.Transport != TransportHTTP && c.Transport != TransportStdio {
		errors = append(errors, fmt.Sprintf("invalid transport '%s': must be one of [%s %s]", c.Transport, TransportHTTP, TransportStdio))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimit))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': %v", cidr, err))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if err := storage.CheckPath(c.SQLiteDBPath); err != nil {
		errors = append(errors, fmt.Sprintf("invalid SQLite database path: %v", err))
	}
	if c.SQLiteBusyTimeout < time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid SQLite busy timeout %v: must be at least 1ms", c.SQLiteBusyTimeout))
	} else if c.SQLiteBusyTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid SQLite busy timeout %v: must be at most 1 minute", c.SQLiteBusyTimeout))
	}
	if c.SQLiteMaxOpenConns < 1 {
		errors = append(errors, fmt.Sprintf("invalid SQLite max open connections %d: must be at least 1", c.SQLiteMaxOpenConns))
	}

	if c.CatalogCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid catalog cache TTL %v: must not be negative", c.CatalogCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
