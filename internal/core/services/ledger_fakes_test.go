package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// fakeLedgerStore is an in-memory LedgerRepository with the same
// conflict-detecting balance write as the real store: the delta only applies
// while the stored balance still equals the caller's expectation, and the
// balance write and the ledger append happen under one mutex hold, mirroring
// the real store's single transaction. It lets the concurrency properties run
// against real goroutine interleavings.
type fakeLedgerStore struct {
	mu         sync.Mutex
	accounts   map[string]*domain.Account // keyed by AccountID
	byNumber   map[string]string          // accountNumber -> AccountID
	ledger     map[string][]domain.Transaction
	nextTxnID  int64
	casFailers int // forces the first N ApplyAndRecord calls to conflict
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		accounts: make(map[string]*domain.Account),
		byNumber: make(map[string]string),
		ledger:   make(map[string][]domain.Transaction),
	}
}

func (f *fakeLedgerStore) SaveAccount(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byNumber[account.AccountNumber]; exists {
		return fmt.Errorf("account number taken: %w", apperrors.ErrDuplicate)
	}
	acc := account
	f.accounts[acc.AccountID] = &acc
	f.byNumber[acc.AccountNumber] = acc.AccountID
	return nil
}

func (f *fakeLedgerStore) FindAccountByNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byNumber[accountNumber]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountNumber, apperrors.ErrNotFound)
	}
	return f.copyAccountLocked(id)
}

func (f *fakeLedgerStore) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyAccountLocked(accountID)
}

func (f *fakeLedgerStore) copyAccountLocked(accountID string) (*domain.Account, error) {
	acc, ok := f.accounts[accountID]
	if !ok || !acc.IsActive {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeLedgerStore) ApplyAndRecord(_ context.Context, delta, expectedBalance decimal.Decimal, draft domain.TransactionDraft) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[draft.AccountID]
	if !ok || !acc.IsActive {
		return nil, fmt.Errorf("account %s: %w", draft.AccountID, apperrors.ErrNotFound)
	}
	if f.casFailers > 0 {
		f.casFailers--
		return nil, apperrors.ErrConflict
	}
	if !acc.Balance.Equal(expectedBalance) {
		return nil, apperrors.ErrConflict
	}
	acc.Balance = acc.Balance.Add(delta)
	f.nextTxnID++
	txn := domain.Transaction{
		TransactionID: f.nextTxnID,
		AccountID:     draft.AccountID,
		Type:          draft.Type,
		Amount:        draft.Amount,
		BalanceAfter:  acc.Balance,
		Description:   draft.Description,
		CreatedAt:     time.Now().UTC(),
	}
	f.ledger[draft.AccountID] = append(f.ledger[draft.AccountID], txn)
	return &txn, nil
}

func (f *fakeLedgerStore) ListTransactions(_ context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.ledger[accountID]
	out := make([]domain.Transaction, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *fakeLedgerStore) ListAllTransactions(_ context.Context, accountID string) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.ledger[accountID]
	out := make([]domain.Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// fakeIdempotencyStore is an in-memory IdempotencyRepository. Liveness is the
// caller's concern; like the real store it returns whatever record exists.
type fakeIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: make(map[string]domain.IdempotencyRecord)}
}

func (f *fakeIdempotencyStore) FindKey(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, fmt.Errorf("idempotency key: %w", apperrors.ErrNotFound)
	}
	cp := rec
	return &cp, nil
}

func (f *fakeIdempotencyStore) SaveKey(_ context.Context, key string, response []byte, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[key] = domain.IdempotencyRecord{
		Key:       key,
		Response:  append([]byte(nil), response...),
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (f *fakeIdempotencyStore) DeleteExpired(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for key, rec := range f.records {
		if rec.ExpiresAt.Before(olderThan) {
			delete(f.records, key)
			removed++
		}
	}
	return removed, nil
}
