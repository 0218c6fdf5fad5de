package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates whether a transaction adds to or removes from a balance.
type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
)

// Transaction is an immutable, append-only ledger record. For any account the
// records ordered by creation form a chain where each BalanceAfter equals the
// previous BalanceAfter adjusted by this transaction's amount.
type Transaction struct {
	TransactionID int64           `json:"transactionID"` // Primary Key (autoincrement)
	AccountID     string          `json:"accountID"`     // FK -> Account.accountID
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`       // Always positive
	BalanceAfter  decimal.Decimal `json:"balanceAfter"` // Balance snapshot after applying
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransactionDraft carries the fields of a transaction that are known before
// the ledger store assigns an identifier, timestamp and balance snapshot.
type TransactionDraft struct {
	AccountID   string
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
}
