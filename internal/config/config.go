package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"
)

type Config struct {
	// HTTP Server
	Port            string
	RateLimitPerMin int

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	SyncPrefetch int

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Auth
	AuthMode  string
	JWTSecret string
	JWTIssuer string

	// Recurring worker
	RecurringSchedule string

	BudgetCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/emitrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "emitrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_ledger"),
		SyncPrefetch: getEnvInt("SYNC_PREFETCH", 10),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		AuthMode:  getEnv("AUTH_MODE", AuthModeJWT),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "@every 1h"),

		BudgetCacheTTL: getEnvDuration("BUDGET_CACHE_TTL", 5*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMin < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMin))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncPrefetch < 1 || c.SyncPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync prefetch %d: must be between 1 and 1000", c.SyncPrefetch))
	}

	switch c.AuthMode {
	case AuthModeDev:
	case AuthModeJWT:
		if len(c.JWTSecret) < 16 {
			errors = append(errors, "JWT_SECRET must be at least 16 characters when AUTH_MODE is jwt")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be 'jwt' or 'dev'", c.AuthMode))
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}

	if c.BudgetCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid budget cache TTL %v: must not be negative", c.BudgetCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets checks the settings only the ledger worker needs.
func (c *Config) ValidateSheets() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the ledger worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME is required for the ledger worker")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the ledger worker")
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
