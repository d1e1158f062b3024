// Package config loads server and worker settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	// HTTP Server
	Port       string
	StaticPath string

	// Storage
	StoreDriver   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// AMQP (optional)
	AMQPURL            string
	AMQPExchange       string
	AMQPReconcileQueue string

	// Logging
	LogLevel string
	Debug    bool

	// Ledger
	TimeZone          string
	MaxVersionRetries int
	BatchConcurrency  int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first if present; variables already set in the
// environment take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", "8080"),
		StaticPath: getEnv("STATIC_PATH", "./static"),

		StoreDriver:   getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:    getEnv("SQLITE_DB_PATH", "./data/tabkeeper.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "tabkeeper"),
		MongoTimeout:  getEnvDuration("MONGO_TIMEOUT", 10*time.Second),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenDuration: getEnvDuration("TOKEN_DURATION", 24*time.Hour),

		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "tabkeeper"),
		AMQPReconcileQueue: getEnv("AMQP_RECONCILE_QUEUE", "reconcile_payments"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getEnvBool("DEBUG", false),

		TimeZone:          getEnv("TZ_NAME", "Local"),
		MaxVersionRetries: getEnvInt("MAX_VERSION_RETRIES", 5),
		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 4),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	drivers := []string{DriverSQLite, DriverMongo}
	if !slices.Contains(drivers, c.StoreDriver) {
		errs = append(errs, fmt.Sprintf("invalid store driver '%s': must be one of %v", c.StoreDriver, drivers))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite driver")
		}
	case DriverMongo:
		if u, err := url.Parse(c.MongoURI); err != nil {
			errs = append(errs, fmt.Sprintf("invalid MongoDB URI: %v", err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errs = append(errs, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, "MongoDB database name cannot be empty when using mongo driver")
		}
		if c.MongoTimeout <= 0 {
			errs = append(errs, fmt.Sprintf("invalid MongoDB timeout %v: must be positive", c.MongoTimeout))
		}
	}

	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT secret must be at least 32 characters")
	}
	if c.TokenDuration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token duration %v: must be at least 1 minute", c.TokenDuration))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPReconcileQueue == "" {
			errs = append(errs, "AMQP reconcile queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid time zone '%s': %v", c.TimeZone, err))
	}

	if c.MaxVersionRetries < 1 {
		errs = append(errs, fmt.Sprintf("invalid max version retries %d: must be at least 1", c.MaxVersionRetries))
	}
	if c.BatchConcurrency < 1 || c.BatchConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid batch concurrency %d: must be between 1 and 64", c.BatchConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// Location returns the time zone used to interpret dates without an offset
// and to compute monthly bounds. It falls back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
