package dto

import (
	"time"

	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionRequest is the body of a deposit or withdrawal call. The
// idempotency key travels in the Idempotency-Key header, not the body.
type TransactionRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransactionData mirrors domain.Transaction for API responses.
type TransactionData struct {
	TransactionID int64                  `json:"transactionID"`
	AccountID     string                 `json:"accountID"`
	Type          domain.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	BalanceAfter  decimal.Decimal        `json:"balanceAfter"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// TransactionResponse is the result of a deposit or withdrawal. It is also the
// exact payload cached under an idempotency key, so a replay returns a
// byte-identical response with IdempotentReplay flipped on.
type TransactionResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Transaction      TransactionData `json:"transaction"`
	NewBalance       decimal.Decimal `json:"newBalance"`
	IdempotentReplay bool            `json:"idempotentReplay,omitempty"`
}

// HistoryResponse lists recent transactions for an account, most recent first.
type HistoryResponse struct {
	Success          bool              `json:"success"`
	AccountNumber    string            `json:"accountNumber"`
	HolderName       string            `json:"holderName"`
	CurrentBalance   decimal.Decimal   `json:"currentBalance"`
	TransactionCount int               `json:"transactionCount"`
	Transactions     []TransactionData `json:"transactions"`
}

// ToTransactionData converts a domain.Transaction to its API representation.
func ToTransactionData(txn *domain.Transaction) TransactionData {
	return TransactionData{
		TransactionID: txn.TransactionID,
		AccountID:     txn.AccountID,
		Type:          txn.Type,
		Amount:        txn.Amount,
		BalanceAfter:  txn.BalanceAfter,
		Description:   txn.Description,
		CreatedAt:     txn.CreatedAt,
	}
}

// ToTransactionDataList converts a slice of domain transactions.
func ToTransactionDataList(txns []domain.Transaction) []TransactionData {
	res := make([]TransactionData, len(txns))
	for i := range txns {
		res[i] = ToTransactionData(&txns[i])
	}
	return res
}
