package models

import "github.com/shopspring/decimal"

// Account represents a bot user and their balance
type Account struct {
	UserID   int64           `db:"user_id"`
	Username string          `db:"username"`
	Balance  decimal.Decimal `db:"balance"`
}
