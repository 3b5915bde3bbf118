package storage

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger defines the per-user balance store
type Ledger interface {
	// EnsureAccount creates the account with a zero balance if it does not exist.
	// An existing account is never modified. An empty username means the
	// user has none; backends with a nullable column store it as NULL.
	EnsureAccount(ctx context.Context, userID int64, username string) error

	// GetBalance returns the stored balance, or zero for an unknown user.
	// It never creates an account.
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)

	// AdjustBalance adds delta (which may be negative) to the balance.
	// For an unknown user it changes nothing and returns no error.
	AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// Logger is the subset of *zap.Logger the ledgers report through
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// LogMissingAccount reports a balance adjustment that matched no account
func LogMissingAccount(logger Logger, userID int64, delta decimal.Decimal) {
	logger.Warn("Balance adjustment matched no account",
		zap.Int64("user_id", userID),
		zap.String("delta", delta.String()),
	)
}
