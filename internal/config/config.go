package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	TelegramToken         string
	CommandTimeout        time.Duration
	MaxConcurrentCommands int
	// RateLimitPerMinute caps commands per user; 0 disables the limit.
	RateLimitPerMinute int

	// Accounts
	AccountsFile string
	Accounts     []Account

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetCacheSize           int
	SheetCacheTTL            time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reports
	CurrencyPrefix string
	Timezone       string

	// Observability
	LogLevel          string
	LogFormat         string
	SentryDSN         string
	SentryEnvironment string
}

var validBackends = []string{"sheets", "sqlite", "memory"}

// Load reads the environment. Accounts are read separately by LoadAccountsFile.
func Load() *Config {
	return &Config{
		TelegramToken:         getEnv("TELEGRAM_TOKEN", ""),
		CommandTimeout:        getEnvDuration("COMMAND_TIMEOUT", 30*time.Second),
		MaxConcurrentCommands: getEnvInt("MAX_CONCURRENT_COMMANDS", 8),
		RateLimitPerMinute:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		AccountsFile: getEnv("ACCOUNTS_FILE", "config.json"),

		DataBackend:  getEnv("DATA_BACKEND", "sheets"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbot.db"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetCacheSize:           getEnvInt("SHEET_CACHE_SIZE", 256),
		SheetCacheTTL:            getEnvDuration("SHEET_CACHE_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_appends"),

		CurrencyPrefix: getEnv("CURRENCY_PREFIX", "Rp."),
		Timezone:       getEnv("TIMEZONE", "Local"),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "production"),
	}
}

// LoadAccountsFile reads the accounts file and fills Accounts. The file's
// access_token is used when TELEGRAM_TOKEN is not set.
func (c *Config) LoadAccountsFile() error {
	f, err := ReadAccountsFile(c.AccountsFile)
	if err != nil {
		return err
	}
	c.Accounts = f.Users
	if c.TelegramToken == "" {
		c.TelegramToken = f.AccessToken
	}
	return nil
}

// Location returns the time zone used to date new transactions.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// PublishesAppendEvents reports whether the bot should publish an event per
// append. The mirror worker writes those events into Google Sheets, so a
// bot already storing in Sheets must not publish them.
func (c *Config) PublishesAppendEvents() bool {
	return c.AMQPURL != "" && c.DataBackend != "sheets"
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.TelegramToken) == "" {
		errors = append(errors, "telegram token is required (TELEGRAM_TOKEN or access_token in the accounts file)")
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.DataBackend == "sheets" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
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
		if c.DataBackend == "sheets" {
			errors = append(errors, "AMQP URL cannot be used with the sheets backend: the mirror worker would write every transaction twice")
		}
	}

	if len(c.Accounts) == 0 {
		errors = append(errors, fmt.Sprintf("no accounts configured in %s", c.AccountsFile))
	}
	seen := map[UserID]bool{}
	for i, a := range c.Accounts {
		if a.UserID == 0 {
			errors = append(errors, fmt.Sprintf("account %d: user_id is required", i))
		}
		if strings.TrimSpace(a.SheetURL) == "" {
			errors = append(errors, fmt.Sprintf("account %d: sheet_url is required", i))
		}
		if seen[a.UserID] {
			errors = append(errors, fmt.Sprintf("account %d: duplicate user_id %d", i, a.UserID))
		}
		seen[a.UserID] = true
	}

	if c.CommandTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid command timeout %v: must be at least 1 second", c.CommandTimeout))
	}
	if c.MaxConcurrentCommands < 1 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent commands %d: must be at least 1", c.MaxConcurrentCommands))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be zero or positive", c.RateLimitPerMinute))
	}
	if c.SheetCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sheet cache size %d: must be at least 1", c.SheetCacheSize))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks what the mirror worker needs: a broker to consume
// from and Google credentials to write with.
func (c *Config) ValidateMirror() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required by the mirror worker")
	} else if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if c.SheetCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sheet cache size %d: must be at least 1", c.SheetCacheSize))
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
