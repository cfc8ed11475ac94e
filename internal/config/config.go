package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP Server
	Port          string
	CookieSecure  bool
	DisplayTZ     string
	DisplayLayout string

	// Backend REST API
	BackendURL     string
	BackendTimeout time.Duration

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	RedisURL       string

	// Database
	SQLiteDBPath string

	// Rendered audit diffs
	CacheTTL time.Duration

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Rate limiting
	RateLimitPerMinute int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleActivitySheetName   string
	GoogleServiceAccountFile  string
	GoogleServiceAccountJSON  string
	GoogleOAuthClientFile     string
	GoogleOAuthTokenFile      string
	GoogleOAuthClientJSON     string
	GoogleOAuthTokenJSON      string
}

// fileConfig mirrors the optional YAML overlay. Only non-empty values apply.
type fileConfig struct {
	Port    string `yaml:"port"`
	Backend struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"backend"`
	Session struct {
		Backend  string `yaml:"backend"`
		TTL      string `yaml:"ttl"`
		RedisURL string `yaml:"redis_url"`
	} `yaml:"session"`
	SQLitePath string `yaml:"sqlite_path"`
	Display    struct {
		Timezone string `yaml:"timezone"`
		Layout   string `yaml:"date_layout"`
	} `yaml:"display"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"amqp"`
	Sheets struct {
		SpreadsheetID string `yaml:"spreadsheet_id"`
		SheetName     string `yaml:"sheet_name"`
		ActivitySheet string `yaml:"activity_sheet"`
	} `yaml:"sheets"`
}

// Load reads .env (if present), then the YAML file named by GAMEZONE_CONFIG,
// then the environment. Later sources win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("GAMEZONE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaults() *Config {
	return &Config{
		Port:          "8080",
		DisplayLayout: "1/2/2006",

		BackendURL:     "http://localhost:3000",
		BackendTimeout: 30 * time.Second,

		SessionBackend: "memory",
		SessionTTL:     24 * time.Hour,
		RedisURL:       "redis://localhost:6379/0",

		SQLiteDBPath: "./data/gamezone.db",
		CacheTTL:     10 * time.Minute,

		LogLevel:      "info",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,

		RateLimitPerMinute: 120,

		AMQPExchange: "gamezone",
		AMQPQueue:    "mutation_events",

		GoogleSheetName:         "Report",
		GoogleActivitySheetName: "Activity",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v string) {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}

	set(&c.Port, fc.Port)
	set(&c.BackendURL, fc.Backend.URL)
	setDur(&c.BackendTimeout, fc.Backend.Timeout)
	set(&c.SessionBackend, fc.Session.Backend)
	setDur(&c.SessionTTL, fc.Session.TTL)
	set(&c.RedisURL, fc.Session.RedisURL)
	set(&c.SQLiteDBPath, fc.SQLitePath)
	set(&c.DisplayTZ, fc.Display.Timezone)
	set(&c.DisplayLayout, fc.Display.Layout)
	set(&c.LogLevel, fc.Log.Level)
	set(&c.LogFile, fc.Log.File)
	set(&c.AMQPURL, fc.AMQP.URL)
	set(&c.AMQPExchange, fc.AMQP.Exchange)
	set(&c.AMQPQueue, fc.AMQP.Queue)
	set(&c.GoogleSpreadsheetID, fc.Sheets.SpreadsheetID)
	set(&c.GoogleSheetName, fc.Sheets.SheetName)
	set(&c.GoogleActivitySheetName, fc.Sheets.ActivitySheet)
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)
	c.DisplayTZ = getEnv("DISPLAY_TZ", c.DisplayTZ)
	c.DisplayLayout = getEnv("DISPLAY_DATE_LAYOUT", c.DisplayLayout)

	c.BackendURL = strings.TrimRight(getEnv("BACKEND_URL", c.BackendURL), "/")
	c.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", c.BackendTimeout)

	c.SessionBackend = getEnv("SESSION_BACKEND", c.SessionBackend)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleActivitySheetName = getEnv("GOOGLE_ACTIVITY_SHEET_NAME", c.GoogleActivitySheetName)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleOAuthClientFile = getEnv("GOOGLE_OAUTH_CLIENT_FILE", c.GoogleOAuthClientFile)
	c.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", c.GoogleOAuthTokenFile)
	c.GoogleOAuthClientJSON = getEnv("GOOGLE_OAUTH_CLIENT_JSON", c.GoogleOAuthClientJSON)
	c.GoogleOAuthTokenJSON = getEnv("GOOGLE_OAUTH_TOKEN_JSON", c.GoogleOAuthTokenJSON)
}

// SheetsEnabled reports whether report export has a destination.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Location resolves the display time zone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.DisplayTZ == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate backend URL
	if parsedURL, err := url.Parse(c.BackendURL); err != nil || c.BackendURL == "" {
		errors = append(errors, fmt.Sprintf("invalid backend URL '%s'", c.BackendURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid backend URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.BackendTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at least 1 second", c.BackendTimeout))
	}

	// Validate session backend
	validBackends := []string{"memory", "sqlite", "redis"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SessionBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validBackends))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.SessionBackend == "redis" {
		if _, err := url.Parse(c.RedisURL); err != nil || c.RedisURL == "" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s'", c.RedisURL))
		}
	}

	// The activity journal always lives in SQLite.
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if c.SQLiteDBPath != ":memory:" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DisplayTZ != "" {
		if _, err := time.LoadLocation(c.DisplayTZ); err != nil {
			errors = append(errors, fmt.Sprintf("invalid display time zone '%s': %v", c.DisplayTZ, err))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate AMQP URL if provided
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

	// Validate Google Sheets configuration if export is enabled
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", f))
			}
		}
	}

	// Return combined errors
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
