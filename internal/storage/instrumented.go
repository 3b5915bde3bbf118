package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"tarolog/internal/metrics"
)

// Instrumented wraps a Ledger and counts its operations
type Instrumented struct {
	Ledger
}

// NewInstrumented returns ledger with operation counters attached
func NewInstrumented(ledger Ledger) *Instrumented {
	return &Instrumented{Ledger: ledger}
}

func (i *Instrumented) EnsureAccount(ctx context.Context, userID int64, username string) error {
	err := i.Ledger.EnsureAccount(ctx, userID, username)
	metrics.IncLedgerOperation("ensure_account", err == nil)
	return err
}

func (i *Instrumented) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := i.Ledger.GetBalance(ctx, userID)
	metrics.IncLedgerOperation("get_balance", err == nil)
	return balance, err
}

func (i *Instrumented) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error {
	err := i.Ledger.AdjustBalance(ctx, userID, delta)
	metrics.IncLedgerOperation("adjust_balance", err == nil)
	return err
}
