package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tarolog/internal/bot"
	"tarolog/internal/config"
	"tarolog/internal/metrics"
	"tarolog/internal/storage"
	"tarolog/internal/storage/ch"
	"tarolog/internal/storage/sqlite"
	"tarolog/internal/storage/stubs"
	"tarolog/internal/tarot"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	ledger storage.Ledger
	bot    *bot.Bot
	server *http.Server

	// closed when the polling loop returns
	pollDone chan struct{}
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if envErr != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting TarologForYou bot", zap.String("ledger_backend", cfg.LedgerBackend))

	metrics.MustRegister()

	// Initialize ledger
	if err := app.initLedger(); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		app.ledger.Close()
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

// NewLogger builds the zap logger for the configured environment
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Dev {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

// initLedger opens the configured ledger backend and prepares its schema
func (a *App) initLedger() error {
	ledger, err := openLedger(a.config, a.logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := ledger.Initialize(ctx); err != nil {
		ledger.Close()
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	a.logger.Info("Ledger initialized successfully")

	a.ledger = storage.NewInstrumented(ledger)
	return nil
}

func openLedger(cfg *config.Config, logger *zap.Logger) (storage.Ledger, error) {
	switch cfg.LedgerBackend {
	case config.BackendMock:
		logger.Info("Using in-memory ledger")
		return stubs.NewMockDB(logger), nil
	case config.BackendClickHouse:
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		return db, nil
	default:
		logger.Info("Opening SQLite ledger", zap.String("path", cfg.SQLitePath))
		db, err := sqlite.NewSQLiteDB(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite ledger: %w", err)
		}
		return db, nil
	}
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	drawer := tarot.NewDrawer(tarot.DefaultDeck(), nil)

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.ledger, drawer, a.config.AllowedUserIDs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	if len(a.config.AllowedUserIDs) > 0 {
		a.logger.Info("Access restricted", zap.Int64s("allowed_user_ids", a.config.AllowedUserIDs))
	}

	a.bot = telegramBot
	return nil
}

// initHTTPServer prepares the HTTP server for health checks, metrics and the webhook
func (a *App) initHTTPServer() {
	a.server = &http.Server{
		Addr:         a.config.ListenAddr,
		Handler:      bot.NewHTTPServer(a.bot, a.config.WebhookPath).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start bot in appropriate mode
	if a.config.PollingMode {
		a.pollDone = make(chan struct{})
		go func() {
			defer close(a.pollDone)
			if err := a.bot.Start(ctx); err != nil {
				a.logger.Error("Polling stopped with error", zap.Error(err))
			}
		}()
	} else {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured", zap.String("path", a.config.WebhookPath))
	}

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down...")
	case err := <-serverErr:
		a.logger.Error("HTTP server error", zap.Error(err))
		stop()
		a.Shutdown()
		return fmt.Errorf("http server: %w", err)
	}
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// No update may be dispatched once Wait begins
	if a.pollDone != nil {
		<-a.pollDone
	}

	// Let in-flight updates finish before the ledger goes away
	a.bot.Wait()

	if err := a.ledger.Close(); err != nil {
		a.logger.Error("Error closing ledger", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
