package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/finvault/ledgerd/internal/core/ports"
	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/dto"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	// idempotencyTTL is how long a cached response replays for.
	idempotencyTTL = 24 * time.Hour

	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type transactionService struct {
	ledgerRepo      ports.LedgerRepository
	idempotencyRepo ports.IdempotencyRepository
	notifier        portssvc.TransactionNotifier
	now             func() time.Time
}

// TransactionServiceOption is a functional option for configuring the service.
type TransactionServiceOption func(*transactionService)

// WithNotifier attaches the hub that receives committed transactions.
func WithNotifier(n portssvc.TransactionNotifier) TransactionServiceOption {
	return func(s *transactionService) {
		s.notifier = n
	}
}

// WithClock overrides the time source. Used by tests to exercise idempotency
// record expiry.
func WithClock(now func() time.Time) TransactionServiceOption {
	return func(s *transactionService) {
		s.now = now
	}
}

// NewTransactionService creates the transaction processor.
func NewTransactionService(ledgerRepo ports.LedgerRepository, idempotencyRepo ports.IdempotencyRepository, options ...TransactionServiceOption) portssvc.TransactionSvc {
	svc := &transactionService{
		ledgerRepo:      ledgerRepo,
		idempotencyRepo: idempotencyRepo,
		now:             time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.TransactionSvc = (*transactionService)(nil)

func (s *transactionService) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string) (*dto.TransactionResponse, error) {
	return s.execute(ctx, accountNumber, amount, idempotencyKey, domain.Deposit)
}

func (s *transactionService) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string) (*dto.TransactionResponse, error) {
	return s.execute(ctx, accountNumber, amount, idempotencyKey, domain.Withdrawal)
}

// execute runs the shared deposit/withdraw skeleton: replay check, validation,
// account resolution, conflict-retried balance mutation, ledger append,
// response caching and detached notification.
func (s *transactionService) execute(ctx context.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string, txnType domain.TransactionType) (*dto.TransactionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Replay shortcut: a live cached response is returned verbatim with the
	// replay flag set, and no further side effects happen.
	if idempotencyKey != "" {
		cached, err := s.findCachedResponse(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			logger.Info("Replaying idempotent response",
				slog.String("account_number", accountNumber),
				slog.Int64("transaction_id", cached.Transaction.TransactionID))
			return cached, nil
		}
	}

	// Validation happens before any cache write, so a malformed request never
	// poisons its key.
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", apperrors.ErrValidation)
	}

	txn, err := s.applyWithRetry(ctx, accountNumber, amount, txnType)
	if err != nil {
		return nil, err
	}

	resp := &dto.TransactionResponse{
		Success:     true,
		Message:     successMessage(txnType, amount),
		Transaction: dto.ToTransactionData(txn),
		NewBalance:  txn.BalanceAfter,
	}

	if idempotencyKey != "" {
		if err := s.cacheResponse(ctx, idempotencyKey, resp); err != nil {
			// The mutation is already committed; failing the request now
			// would only push the caller into a retry it no longer needs.
			logger.Error("Failed to store idempotency record",
				slog.String("account_number", accountNumber),
				slog.String("error", err.Error()))
		}
	}

	// Detached, best-effort fan-out. The hub owns all failure handling.
	if s.notifier != nil {
		s.notifier.Broadcast(accountNumber, *txn)
	}

	return resp, nil
}

// applyWithRetry performs the validate-and-apply sequence, re-reading the
// account and retrying on conflict so that a lost balance race never partially
// applies and never reaches the caller. The balance write and the ledger
// append commit as one unit, so the history stays in balance-chain order. The
// loop makes global progress: a conflict means another mutation on the account
// just committed, so with a finite set of contenders every request eventually
// settles.
func (s *transactionService) applyWithRetry(ctx context.Context, accountNumber string, amount decimal.Decimal, txnType domain.TransactionType) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("balance update for account %s interrupted: %w", accountNumber, err)
		}

		account, err := s.ledgerRepo.FindAccountByNumber(ctx, accountNumber)
		if err != nil {
			return nil, err
		}

		delta := amount
		if txnType == domain.Withdrawal {
			if amount.GreaterThan(account.Balance) {
				return nil, fmt.Errorf("available balance is %s: %w",
					account.Balance.StringFixed(2), apperrors.ErrInsufficientFunds)
			}
			delta = amount.Neg()
		}

		txn, err := s.ledgerRepo.ApplyAndRecord(ctx, delta, account.Balance, domain.TransactionDraft{
			AccountID:   account.AccountID,
			Type:        txnType,
			Amount:      amount,
			Description: description(txnType, amount),
		})
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Info("Balance update conflict, retrying",
				slog.String("account_number", accountNumber),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		return txn, nil
	}
}

// findCachedResponse returns the live cached response for key, or nil when the
// key is absent or its record has expired.
func (s *transactionService) findCachedResponse(ctx context.Context, key string) (*dto.TransactionResponse, error) {
	rec, err := s.idempotencyRepo.FindKey(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if !rec.ExpiresAt.After(s.now()) {
		// Expired records are logically absent; the sweep collects them later.
		return nil, nil
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Response, &resp); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	resp.IdempotentReplay = true
	return &resp, nil
}

func (s *transactionService) cacheResponse(ctx context.Context, key string, resp *dto.TransactionResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}
	return s.idempotencyRepo.SaveKey(ctx, key, payload, s.now().Add(idempotencyTTL))
}

func (s *transactionService) GetBalance(ctx context.Context, accountNumber string) (*dto.BalanceResponse, error) {
	account, err := s.ledgerRepo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponse{
		Success:       true,
		AccountNumber: account.AccountNumber,
		HolderName:    account.HolderName,
		Balance:       account.Balance,
	}, nil
}

func (s *transactionService) GetHistory(ctx context.Context, accountNumber string, limit int) (*dto.HistoryResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	account, err := s.ledgerRepo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	txns, err := s.ledgerRepo.ListTransactions(ctx, account.AccountID, limit)
	if err != nil {
		return nil, err
	}

	return &dto.HistoryResponse{
		Success:          true,
		AccountNumber:    account.AccountNumber,
		HolderName:       account.HolderName,
		CurrentBalance:   account.Balance,
		TransactionCount: len(txns),
		Transactions:     dto.ToTransactionDataList(txns),
	}, nil
}

func (s *transactionService) ListAllTransactions(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	account, err := s.ledgerRepo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListAllTransactions(ctx, account.AccountID)
}

func (s *transactionService) SweepExpiredKeys(ctx context.Context) (int64, error) {
	return s.idempotencyRepo.DeleteExpired(ctx, s.now())
}

func successMessage(txnType domain.TransactionType, amount decimal.Decimal) string {
	if txnType == domain.Withdrawal {
		return fmt.Sprintf("Successfully withdrew $%s", amount.StringFixed(2))
	}
	return fmt.Sprintf("Successfully deposited $%s", amount.StringFixed(2))
}

func description(txnType domain.TransactionType, amount decimal.Decimal) string {
	if txnType == domain.Withdrawal {
		return fmt.Sprintf("Withdrawal of $%s", amount.StringFixed(2))
	}
	return fmt.Sprintf("Deposit of $%s", amount.StringFixed(2))
}
