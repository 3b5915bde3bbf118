package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"tarolog/internal/app"
	"tarolog/internal/config"
)

const devPassword = "devpassword"

// setDefault sets key only when the environment does not provide it
func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

// startClickHouse runs a throwaway server and points the ledger config at it.
// The returned func terminates the container.
func startClickHouse(ctx context.Context) (func(), error) {
	container, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(devPassword),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		return nil, err
	}
	terminate := func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate ClickHouse container: %v", err)
		}
	}

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, err
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		terminate()
		return nil, err
	}

	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", devPassword)
	os.Setenv("CLICKHOUSE_USE_TLS", "false")

	log.Printf("ClickHouse ledger at %s:%s", host, port.Port())
	return terminate, nil
}

func main() {
	ctx := context.Background()

	// Local runs poll Telegram and keep state next to the working tree
	setDefault("POLLING_MODE", "true")
	setDefault("APP_ENV", "dev")
	setDefault("LOG_LEVEL", "debug")
	setDefault("LISTEN_ADDR", ":8080")
	setDefault("LEDGER_BACKEND", config.BackendSQLite)
	setDefault("SQLITE_PATH", filepath.Join(os.TempDir(), "tarolog_dev.db"))

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	switch backend := os.Getenv("LEDGER_BACKEND"); backend {
	case config.BackendClickHouse:
		log.Println("Starting ClickHouse testcontainer...")
		terminate, err := startClickHouse(ctx)
		if err != nil {
			log.Fatalf("Failed to start ClickHouse: %v", err)
		}
		defer terminate()
	case config.BackendSQLite:
		log.Printf("SQLite ledger at %s", os.Getenv("SQLITE_PATH"))
	default:
		log.Printf("Ledger backend: %s", backend)
	}

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}
