package ports

import (
	"context"
	"time"

	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the durable system of record for accounts and their
// append-only transaction history.
type LedgerRepository interface {
	// SaveAccount inserts a new account row. Returns apperrors.ErrDuplicate if
	// the generated account number collides with an existing one.
	SaveAccount(ctx context.Context, account domain.Account) error

	// FindAccountByNumber resolves an active account by its 10-digit number.
	// Returns apperrors.ErrNotFound if absent or inactive.
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)

	// FindAccountByID resolves an active account by its surrogate ID.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ApplyAndRecord adds delta to the account balance and appends the
	// matching ledger row in one atomic unit. The balance write is
	// conflict-detecting: it only applies if the stored balance still equals
	// expectedBalance, and apperrors.ErrConflict means nothing was written
	// (callers re-read and retry). Committing both together keeps ledger rows
	// in balance-chain order: no row can land between another writer's balance
	// update and its own row. Rows are never mutated or deleted afterward.
	ApplyAndRecord(ctx context.Context, delta, expectedBalance decimal.Decimal, draft domain.TransactionDraft) (*domain.Transaction, error)

	// ListTransactions returns up to limit transactions for the account, most
	// recent first.
	ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)

	// ListAllTransactions returns the full history, most recent first.
	ListAllTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
}

// IdempotencyRepository stores cached responses keyed by client-supplied
// idempotency keys. Liveness is decided by the caller against ExpiresAt; the
// repository only guarantees last-writer-wins storage and lazy cleanup.
type IdempotencyRepository interface {
	// FindKey returns the record for key, or apperrors.ErrNotFound.
	FindKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error)

	// SaveKey inserts or replaces the record for key.
	SaveKey(ctx context.Context, key string, response []byte, expiresAt time.Time) error

	// DeleteExpired removes records whose expiry is before olderThan and
	// reports how many were removed. Safe to run concurrently with lookups.
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// APIKeyRepository backs the credential-validation collaborator.
type APIKeyRepository interface {
	// FindActiveKey returns the active key row, or apperrors.ErrNotFound.
	FindActiveKey(ctx context.Context, key string) (*domain.APIKey, error)

	// FindKeyByName returns the key row with the given name, or apperrors.ErrNotFound.
	FindKeyByName(ctx context.Context, name string) (*domain.APIKey, error)

	// SaveKey inserts a new API key row.
	SaveKey(ctx context.Context, key string, name string) error
}
