package stubs

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tarolog/internal/models"
	"tarolog/internal/storage"
)

// MockDB is an in-memory implementation of the Ledger interface for testing
type MockDB struct {
	mu       sync.RWMutex
	accounts map[int64]models.Account
	logger   storage.Logger
}

// NewMockDB creates a new mock ledger. A nil logger discards output.
func NewMockDB(logger storage.Logger) *MockDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockDB{
		accounts: make(map[int64]models.Account),
		logger:   logger,
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// EnsureAccount creates the account unless it already exists
func (m *MockDB) EnsureAccount(ctx context.Context, userID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[userID]; ok {
		return nil
	}
	m.accounts[userID] = models.Account{
		UserID:   userID,
		Username: username,
		Balance:  decimal.Zero,
	}
	m.logger.Info("Account created", zap.Int64("user_id", userID), zap.String("username", username))
	return nil
}

// GetBalance returns the balance or zero for an unknown user
func (m *MockDB) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[userID]
	if !ok {
		return decimal.Zero, nil
	}
	return account.Balance, nil
}

// AdjustBalance adds delta to an existing account
func (m *MockDB) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[userID]
	if !ok {
		storage.LogMissingAccount(m.logger, userID, delta)
		return nil
	}
	account.Balance = account.Balance.Add(delta)
	m.accounts[userID] = account
	return nil
}

// GetAccount returns a copy of the stored account, for tests
func (m *MockDB) GetAccount(userID int64) (models.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[userID]
	return account, ok
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
