package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/finvault/ledgerd/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates the durable store for accounts and transactions.
func NewLedgerRepository(pool *pgxpool.Pool) ports.LedgerRepository {
	return &ledgerRepository{pool: pool}
}

var _ ports.LedgerRepository = (*ledgerRepository)(nil)

func (r *ledgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (account_id, account_number, holder_name, balance, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.pool.Exec(ctx, query,
		account.AccountID,
		account.AccountNumber,
		account.HolderName,
		account.Balance,
		account.IsActive,
		account.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("account number %s already taken: %w", account.AccountNumber, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}
	return nil
}

func (r *ledgerRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `
		SELECT account_id, account_number, holder_name, balance, is_active, created_at
		FROM accounts
		WHERE account_number = $1 AND is_active;
	`
	return r.scanAccount(r.pool.QueryRow(ctx, query, accountNumber), accountNumber)
}

func (r *ledgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT account_id, account_number, holder_name, balance, is_active, created_at
		FROM accounts
		WHERE account_id = $1 AND is_active;
	`
	return r.scanAccount(r.pool.QueryRow(ctx, query, accountID), accountID)
}

func (r *ledgerRepository) scanAccount(row pgx.Row, ident string) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountID,
		&acc.AccountNumber,
		&acc.HolderName,
		&acc.Balance,
		&acc.IsActive,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", ident, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find account %s: %w", ident, err)
	}
	return &acc, nil
}

// ApplyAndRecord runs the conflict-detecting balance write and the ledger
// append in one database transaction. The UPDATE only matches while the stored
// balance still equals expectedBalance, so two racing mutations on one account
// can never both apply against the same starting balance; committing the
// INSERT with it means no other writer's row can land between our balance
// update and our row, keeping the history in balance-chain order. Zero rows
// matched means we lost the race and nothing is written.
func (r *ledgerRepository) ApplyAndRecord(ctx context.Context, delta, expectedBalance decimal.Decimal, draft domain.TransactionDraft) (*domain.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for account %s: %w", draft.AccountID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
		UPDATE accounts
		SET balance = balance + $2
		WHERE account_id = $1 AND balance = $3 AND is_active
		RETURNING balance;
	`
	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx, updateQuery, draft.AccountID, delta, expectedBalance).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("balance update for account %s: %w", draft.AccountID, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to apply balance delta for account %s: %w", draft.AccountID, err)
	}

	insertQuery := `
		INSERT INTO transactions (account_id, type, amount, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING transaction_id, created_at;
	`
	txn := domain.Transaction{
		AccountID:    draft.AccountID,
		Type:         draft.Type,
		Amount:       draft.Amount,
		BalanceAfter: newBalance,
		Description:  draft.Description,
	}
	err = tx.QueryRow(ctx, insertQuery,
		draft.AccountID,
		draft.Type,
		draft.Amount,
		newBalance,
		draft.Description,
		time.Now().UTC(),
	).Scan(&txn.TransactionID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction for account %s: %w", draft.AccountID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit balance update for account %s: %w", draft.AccountID, err)
	}
	return &txn, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT transaction_id, account_id, type, amount, balance_after, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanTransactions(rows, accountID)
}

func (r *ledgerRepository) ListAllTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `
		SELECT transaction_id, account_id, type, amount, balance_after, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, transaction_id DESC;
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list all transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return scanTransactions(rows, accountID)
}

func scanTransactions(rows pgx.Rows, accountID string) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		err := rows.Scan(
			&txn.TransactionID,
			&txn.AccountID,
			&txn.Type,
			&txn.Amount,
			&txn.BalanceAfter,
			&txn.Description,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row for account %s: %w", accountID, err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions for account %s: %w", accountID, err)
	}
	return txns, nil
}
