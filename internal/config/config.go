package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Dashboard HTTP server
	Port string

	// Expense REST API
	APIPort    string
	APIBaseURL string

	// Databases
	ExpensesDBPath string
	StateDBPath    string

	// AMQP; an empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (worker only)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Dashboard behaviour
	Budget             core.Money
	HTTPTimeout        time.Duration
	StreakCron         string
	RateLimitPerMinute int
	CacheTTL           time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		APIPort:    getEnv("API_PORT", "3000"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:3000/api"),

		ExpensesDBPath: getEnv("EXPENSES_DB_PATH", "./data/expenses.db"),
		StateDBPath:    getEnv("STATE_DB_PATH", "./data/state.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		Budget:             getEnvDecimal("BUDGET", core.MoneyFromInt(1000)),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		StreakCron:         getEnv("STREAK_CRON", "5 0 * * *"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CacheTTL:           getEnvDuration("CACHE_TTL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks the settings shared by every process and returns all
// problems at once.
func (c *Config) Validate() error {
	var errs []string

	errs = appendPortError(errs, "port", c.Port)
	errs = appendPortError(errs, "API port", c.APIPort)

	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid API base URL '%s': must be an absolute http(s) URL", c.APIBaseURL))
	}

	if c.ExpensesDBPath == "" {
		errs = append(errs, "expenses database path cannot be empty")
	}
	if c.StateDBPath == "" {
		errs = append(errs, "state database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !c.Budget.IsPositive() {
		errs = append(errs, fmt.Sprintf("invalid budget %s: must be greater than 0", c.Budget.String()))
	}
	if c.HTTPTimeout < time.Second || c.HTTPTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must be between 1s and 5m", c.HTTPTimeout))
	}
	if _, err := cron.ParseStandard(c.StreakCron); err != nil {
		errs = append(errs, fmt.Sprintf("invalid streak cron '%s': %v", c.StreakCron, err))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings the Sheets mirror worker needs on top
// of Validate.
func (c *Config) ValidateWorker() error {
	var errs []string
	if err := c.Validate(); err != nil {
		errs = append(errs, strings.Split(strings.TrimPrefix(err.Error(), validationPrefix), "\n- ")...)
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errs = append(errs, "Google Sheet name is required for the worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the worker")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return joinErrors(errs)
}

const validationPrefix = "configuration validation failed:\n- "

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s%s", validationPrefix, strings.Join(errs, "\n- "))
}

func appendPortError(errs []string, name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return append(errs, fmt.Sprintf("invalid %s '%s': must be a number", name, value))
	}
	if port < 1 || port > 65535 {
		return append(errs, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port))
	}
	return errs
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

func getEnvDecimal(key string, defaultValue core.Money) core.Money {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return core.Money{Decimal: d}
		}
	}
	return defaultValue
}
