package services

import (
	"context"

	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/finvault/ledgerd/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountSvc covers the account-creation collaborator. The transaction engine
// only ever reads the rows it produces.
type AccountSvc interface {
	CreateAccount(ctx context.Context, holderName string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
}

// TransactionSvc is the transaction processor: validated, idempotent balance
// mutations plus read-only projections over the ledger.
type TransactionSvc interface {
	Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string) (*dto.TransactionResponse, error)
	Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string) (*dto.TransactionResponse, error)
	GetBalance(ctx context.Context, accountNumber string) (*dto.BalanceResponse, error)
	GetHistory(ctx context.Context, accountNumber string, limit int) (*dto.HistoryResponse, error)
	ListAllTransactions(ctx context.Context, accountNumber string) ([]domain.Transaction, error)
	SweepExpiredKeys(ctx context.Context) (int64, error)
}

// APIKeySvc covers the credential-validation collaborator.
type APIKeySvc interface {
	ValidateKey(ctx context.Context, key string) error
	EnsureDefaultKey(ctx context.Context) (string, error)
}

// TransactionNotifier receives committed transactions for best-effort fan-out
// to live subscribers. Implementations must never block the transaction path
// or surface delivery failures to it.
type TransactionNotifier interface {
	Broadcast(accountNumber string, txn domain.Transaction)
}

// ServiceContainer bundles the service facades handed to the transport layer
// by the composition root.
type ServiceContainer struct {
	Account     AccountSvc
	Transaction TransactionSvc
	APIKey      APIKeySvc
}
