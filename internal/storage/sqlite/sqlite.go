package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tarolog/internal/storage"
	"tarolog/migrations"
)

// SQLiteDB is a ledger kept in a local SQLite file
type SQLiteDB struct {
	db     *sqlx.DB
	logger storage.Logger
}

// NewSQLiteDB opens the database file at path, creating it if needed
func NewSQLiteDB(path string, logger storage.Logger) (*SQLiteDB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteDB{db: db, logger: logger}, nil
}

// Initialize applies the embedded migrations, creating the users table if absent
func (s *SQLiteDB) Initialize(ctx context.Context) error {
	dir, err := fs.Sub(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db.DB, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("Migration applied",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

// withConn runs fn on a connection held only for the duration of the call
func (s *SQLiteDB) withConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// EnsureAccount inserts the account unless the user id is already present
func (s *SQLiteDB) EnsureAccount(ctx context.Context, userID int64, username string) error {
	return s.withConn(ctx, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO users (user_id, username, balance) VALUES (?, ?, ?) ON CONFLICT(user_id) DO NOTHING`,
			userID, sql.NullString{String: username, Valid: username != ""}, 0.0)
		if err != nil {
			return fmt.Errorf("failed to ensure account %d: %w", userID, err)
		}

		if n, err := res.RowsAffected(); err == nil && n == 1 {
			s.logger.Info("Account created", zap.Int64("user_id", userID), zap.String("username", username))
		}
		return nil
	})
}

// GetBalance returns the stored balance or zero when the user is unknown
func (s *SQLiteDB) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := s.withConn(ctx, func(conn *sqlx.Conn) error {
		err := conn.GetContext(ctx, &balance, `SELECT balance FROM users WHERE user_id = ?`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			balance = decimal.Zero
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get balance for %d: %w", userID, err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// AdjustBalance adds delta to the balance in a single statement
func (s *SQLiteDB) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error {
	return s.withConn(ctx, func(conn *sqlx.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE users SET balance = balance + ? WHERE user_id = ?`,
			delta.InexactFloat64(), userID)
		if err != nil {
			return fmt.Errorf("failed to adjust balance for %d: %w", userID, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected for %d: %w", userID, err)
		}
		if n == 0 {
			storage.LogMissingAccount(s.logger, userID, delta)
		}
		return nil
	})
}

// Close closes the database
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
