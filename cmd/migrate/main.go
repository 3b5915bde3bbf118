package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"tarolog/migrations"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	backend := getEnv("LEDGER_BACKEND", "sqlite")

	db, dialect, dir, err := open(backend)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Printf("Connected to %s successfully", backend)

	// Get command from arguments (default to "up")
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// "create" writes a new file on disk next to the embedded ones
	if command == "create" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate create <migration_name>")
		}
		migrationName := os.Args[2]
		if err := goose.Create(db, "./migrations/"+dir, migrationName, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		log.Printf("Created migration: %s", migrationName)
		return
	}

	migrationsFS, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		log.Fatalf("Failed to open embedded migrations: %v", err)
	}

	provider, err := goose.NewProvider(dialect, db, migrationsFS)
	if err != nil {
		log.Fatalf("Failed to create migration provider: %v", err)
	}

	ctx := context.Background()

	// Run goose command
	log.Printf("Running migrations: %s", command)
	switch command {
	case "up":
		if _, err := provider.Up(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations completed successfully")
	case "down":
		if _, err := provider.Down(ctx); err != nil {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		log.Println("Rollback completed successfully")
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		for _, s := range statuses {
			log.Printf("%-40s %s", s.Source.Path, s.State)
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		log.Printf("Current migration version: %d", version)
	default:
		log.Fatalf("Unknown command: %s. Available commands: up, down, status, version, create", command)
	}
}

// open connects to the ledger database for the given backend
func open(backend string) (*sql.DB, goose.Dialect, string, error) {
	switch backend {
	case "sqlite":
		db, err := sql.Open("sqlite3", getEnv("SQLITE_PATH", "tarolog_users.db"))
		return db, goose.DialectSQLite3, migrations.SQLiteDir, err
	case "clickhouse":
		options := &clickhouse.Options{
			Addr:     []string{fmt.Sprintf("%s:%s", getEnv("CLICKHOUSE_HOST", "localhost"), getEnv("CLICKHOUSE_PORT", "9000"))},
			Protocol: clickhouse.Native,
			Auth: clickhouse.Auth{
				Database: getEnv("CLICKHOUSE_DATABASE", "default"),
				Username: getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		}
		if getEnv("CLICKHOUSE_USE_TLS", "false") == "true" {
			options.TLS = &tls.Config{}
		}
		return clickhouse.OpenDB(options), goose.DialectClickHouse, migrations.ClickHouseDir, nil
	default:
		return nil, "", "", fmt.Errorf("unknown LEDGER_BACKEND: %s", backend)
	}
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
