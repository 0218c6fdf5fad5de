package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a bank account holding a single balance.
// The AccountNumber is the external identity handed to clients: a unique
// 10-digit numeric string generated at creation and never reused.
type Account struct {
	AccountID     string          `json:"accountID"`     // Primary Key (UUID)
	AccountNumber string          `json:"accountNumber"` // Unique 10-digit number
	HolderName    string          `json:"holderName"`
	Balance       decimal.Decimal `json:"balance"` // Exact decimal, two fractional digits
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}
