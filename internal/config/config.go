package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Ledger backends
const (
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
	BackendMock       = "mock"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string
	AllowedUserIDs []int64 // Empty means everyone may use the bot

	// Bot mode configuration
	PollingMode bool   // Local development only; production runs on a webhook
	WebhookURL  string // Public URL registered with Telegram
	WebhookPath string // Path the HTTP server receives updates on
	ListenAddr  string

	LedgerBackend string
	SQLitePath    string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	LogLevel string
	Dev      bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Allowed User IDs (optional)
	if allowedIDsStr := strings.TrimSpace(os.Getenv("ALLOWED_USER_IDS")); allowedIDsStr != "" {
		for _, idStr := range strings.Split(allowedIDsStr, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
			}
			config.AllowedUserIDs = append(config.AllowedUserIDs, id)
		}
	}

	// Bot mode configuration
	config.PollingMode = os.Getenv("POLLING_MODE") == "true"
	config.WebhookURL = os.Getenv("WEBHOOK_URL")
	if config.WebhookURL == "" && !config.PollingMode {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}

	config.WebhookPath = getEnv("WEBHOOK_PATH", "/"+config.TelegramToken)
	if !strings.HasPrefix(config.WebhookPath, "/") {
		config.WebhookPath = "/" + config.WebhookPath
	}
	config.ListenAddr = getEnv("LISTEN_ADDR", ":8443")

	config.LogLevel = getEnv("LOG_LEVEL", "info")
	config.Dev = os.Getenv("APP_ENV") == "dev"

	// Ledger backend (default: sqlite)
	config.LedgerBackend = strings.ToLower(getEnv("LEDGER_BACKEND", BackendSQLite))
	if os.Getenv("USE_MOCK_DB") == "true" {
		config.LedgerBackend = BackendMock
	}

	switch config.LedgerBackend {
	case BackendMock:
	case BackendSQLite:
		config.SQLitePath = getEnv("SQLITE_PATH", "tarolog_users.db")
	case BackendClickHouse:
		if err := loadClickHouse(config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND: %s", config.LedgerBackend)
	}

	return config, nil
}

func loadClickHouse(config *Config) error {
	config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
	if config.ClickHouseHost == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required when LEDGER_BACKEND is clickhouse")
	}

	portStr := os.Getenv("CLICKHOUSE_PORT")
	if portStr == "" {
		config.ClickHousePort = 9000 // Default ClickHouse native port
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		config.ClickHousePort = port
	}

	config.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", "default")
	config.ClickHouseUser = getEnv("CLICKHOUSE_USER", "default")
	config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
	config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
