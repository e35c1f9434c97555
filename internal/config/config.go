// Package config reads process configuration from the environment.
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
	// HTTP server
	Port      string
	PublicURL string
	RateLimit int
	// APIToken guards the JSON API; empty leaves it open.
	APIToken string

	LogLevel string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP. An empty URL keeps media processing in process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Gemini
	GeminiAPIKey    string
	GeminiModel     string
	GeminiFastModel string

	// Twilio
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	// Media
	GCSCredentialsFile string
	MediaWorkers       int
	MediaQueueSize     int
	MediaFetchTimeout  time.Duration

	// DirectoryCacheTTL bounds how long accounts added by another process
	// stay invisible to name lookups.
	DirectoryCacheTTL         time.Duration
	PeriodConfidenceThreshold float64
}

var validBackends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		PublicURL: getEnv("PUBLIC_URL", ""),
		RateLimit: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		APIToken:  getEnv("API_TOKEN", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbot.db"),
		SeedFile:     getEnv("SEED_FILE", "./data/accounts.yaml"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "media_jobs"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiFastModel: getEnv("GEMINI_FAST_MODEL", "gemini-2.5-flash-lite"),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       getEnv("TWILIO_FROM", ""),

		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		MediaWorkers:       getEnvInt("MEDIA_WORKERS", 4),
		MediaQueueSize:     getEnvInt("MEDIA_QUEUE_SIZE", 32),
		MediaFetchTimeout:  getEnvDuration("MEDIA_FETCH_TIMEOUT", 30*time.Second),

		DirectoryCacheTTL:         getEnvDuration("DIRECTORY_CACHE_TTL", 10*time.Second),
		PeriodConfidenceThreshold: getEnvFloat("PERIOD_CONFIDENCE_THRESHOLD", 0.5),
	}
}

// TwilioEnabled reports whether outbound messages go through Twilio.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != ""
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
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
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
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
	}

	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid public URL '%s': must be absolute", c.PublicURL))
		}
	}
	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimit))
	}

	if (c.TwilioAccountSID == "") != (c.TwilioAuthToken == "") {
		errors = append(errors, "TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN must be set together")
	}
	if c.TwilioEnabled() && c.TwilioFrom == "" {
		errors = append(errors, "TWILIO_FROM is required when Twilio is configured")
	}

	if c.GCSCredentialsFile != "" {
		if _, err := os.Stat(c.GCSCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("GCS credentials file does not exist: %s", c.GCSCredentialsFile))
		}
	}

	if c.MediaWorkers < 1 || c.MediaWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid media workers %d: must be between 1 and 64", c.MediaWorkers))
	}
	if c.MediaQueueSize < 1 || c.MediaQueueSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid media queue size %d: must be between 1 and 10000", c.MediaQueueSize))
	}
	if c.MediaFetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid media fetch timeout %v: must be at least 1 second", c.MediaFetchTimeout))
	}
	if c.DirectoryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid directory cache TTL %v: must not be negative", c.DirectoryCacheTTL))
	}
	if c.PeriodConfidenceThreshold < 0 || c.PeriodConfidenceThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid period confidence threshold %v: must be between 0 and 1", c.PeriodConfidenceThreshold))
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
