package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tarolog/internal/storage"
	"tarolog/migrations"
)

// ClickHouseDB keeps accounts in a ReplacingMergeTree and balances as an
// append-only journal of deltas.
type ClickHouseDB struct {
	conn    clickhouse.Conn
	options *clickhouse.Options
	logger  storage.Logger
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool, logger storage.Logger) (*ClickHouseDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, options: options, logger: logger}, nil
}

// Initialize applies the embedded ClickHouse migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	dir, err := fs.Sub(migrations.FS, migrations.ClickHouseDir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	sqlDB := clickhouse.OpenDB(db.options)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectClickHouse, sqlDB, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		db.logger.Info("Migration applied", zap.String("source", r.Source.Path))
	}
	return nil
}

func (db *ClickHouseDB) accountExists(ctx context.Context, userID int64) (bool, error) {
	var n uint64
	err := db.conn.QueryRow(ctx, `SELECT count() FROM accounts FINAL WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up account %d: %w", userID, err)
	}
	return n > 0, nil
}

// firstWriteVersion orders ReplacingMergeTree versions so the earliest insert survives merges
func firstWriteVersion(t time.Time) uint64 {
	return math.MaxUint64 - uint64(t.UnixNano())
}

// EnsureAccount creates the account unless one already exists
func (db *ClickHouseDB) EnsureAccount(ctx context.Context, userID int64, username string) error {
	exists, err := db.accountExists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	now := time.Now().UTC()
	err = db.insertRow(ctx, `INSERT INTO accounts (user_id, username, created_at, version)`,
		userID, username, now, firstWriteVersion(now))
	if err != nil {
		return fmt.Errorf("failed to create account %d: %w", userID, err)
	}

	db.logger.Info("Account created", zap.Int64("user_id", userID), zap.String("username", username))
	return nil
}

// GetBalance sums the journal for the user; unknown users have no entries
func (db *ClickHouseDB) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.conn.QueryRow(ctx, `SELECT toDecimal64(sum(delta), 2) FROM balance_entries WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance for %d: %w", userID, err)
	}
	return balance, nil
}

// AdjustBalance appends a journal entry when the account exists
func (db *ClickHouseDB) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error {
	exists, err := db.accountExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		storage.LogMissingAccount(db.logger, userID, delta)
		return nil
	}

	err = db.insertRow(ctx, `INSERT INTO balance_entries (user_id, delta, created_at)`,
		userID, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to adjust balance for %d: %w", userID, err)
	}
	return nil
}

// insertRow sends a single row as a native batch so values bind to column types
func (db *ClickHouseDB) insertRow(ctx context.Context, query string, values ...any) error {
	batch, err := db.conn.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer batch.Abort()

	if err := batch.Append(values...); err != nil {
		return err
	}
	return batch.Send()
}

// username returns the stored username for the account
func (db *ClickHouseDB) username(ctx context.Context, userID int64) (string, error) {
	var name string
	err := db.conn.QueryRow(ctx, `SELECT username FROM accounts FINAL WHERE user_id = ?`, userID).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("failed to get username for %d: %w", userID, err)
	}
	return name, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
