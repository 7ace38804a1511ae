package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gamecredits/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"

	// Stipend configuration
	StipendAmount        int64         `env:"STIPEND_AMOUNT" envDefault:"200"`
	StipendInterval      time.Duration `env:"STIPEND_INTERVAL" envDefault:"168h"`
	StipendCheckInterval time.Duration `env:"STIPEND_CHECK_INTERVAL" envDefault:"1h"`

	// Loan configuration
	MaxLoanDays       int           `env:"MAX_LOAN_DAYS" envDefault:"90"`
	LoanSweepInterval time.Duration `env:"LOAN_SWEEP_INTERVAL" envDefault:"1h"`

	// Leaderboard configuration
	LeaderboardWindow time.Duration `env:"LEADERBOARD_WINDOW" envDefault:"168h"`

	// NATS configuration (empty servers disables forwarding)
	NATSServers       string `env:"NATS_SERVERS"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"gamecredits"`

	// Discord webhook for settlement announcements (optional)
	DiscordWebhookID    string `env:"DISCORD_WEBHOOK_ID"`
	DiscordWebhookToken string `env:"DISCORD_WEBHOOK_TOKEN"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"gamecredits"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_METRIC_EXPORT_INTERVAL" envDefault:"60000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// HasDiscordWebhook reports whether settlement announcements are configured
func (c *Config) HasDiscordWebhook() bool {
	return c.DiscordWebhookID != "" && c.DiscordWebhookToken != ""
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return &config, nil
}

// Validate checks required and range-constrained settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.StipendAmount <= 0 {
		return fmt.Errorf("STIPEND_AMOUNT must be positive, got %d", c.StipendAmount)
	}
	if c.StipendInterval <= 0 {
		return fmt.Errorf("STIPEND_INTERVAL must be positive, got %s", c.StipendInterval)
	}
	if c.MaxLoanDays <= 0 {
		return fmt.Errorf("MAX_LOAN_DAYS must be positive, got %d", c.MaxLoanDays)
	}
	switch c.OTelExporterType {
	case "console", "otlp", "none":
	default:
		return fmt.Errorf("OTEL_EXPORTER_TYPE must be console, otlp or none, got %q", c.OTelExporterType)
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		LogLevel:                 "debug",
		LogFormat:                "text",
		StipendAmount:            200,
		StipendInterval:          7 * 24 * time.Hour,
		StipendCheckInterval:     time.Hour,
		MaxLoanDays:              90,
		LoanSweepInterval:        time.Hour,
		LeaderboardWindow:        7 * 24 * time.Hour,
		NATSSubjectPrefix:        "gamecredits",
		OTelServiceName:          "gamecredits",
		OTelExporterType:         "none",
		OTelExportIntervalMillis: 60000,
	}
}
