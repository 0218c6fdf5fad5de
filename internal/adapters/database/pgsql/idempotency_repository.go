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
	"github.com/jackc/pgx/v5/pgxpool"
)

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates the store for cached idempotent responses.
func NewIdempotencyRepository(pool *pgxpool.Pool) ports.IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

var _ ports.IdempotencyRepository = (*idempotencyRepository)(nil)

func (r *idempotencyRepository) FindKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	// The service re-checks expiry against its own clock; the predicate here
	// keeps expired rows invisible even before the sweep removes them.
	query := `
		SELECT key, response, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND expires_at > now();
	`
	var rec domain.IdempotencyRecord
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key,
		&rec.Response,
		&rec.CreatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("idempotency key: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &rec, nil
}

func (r *idempotencyRepository) SaveKey(ctx context.Context, key string, response []byte, expiresAt time.Time) error {
	// Last writer wins: an expired record under the same key is silently
	// superseded.
	query := `
		INSERT INTO idempotency_keys (key, response, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET response = EXCLUDED.response,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at;
	`
	_, err := r.pool.Exec(ctx, query, key, response, time.Now().UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM idempotency_keys WHERE expires_at < $1;`
	tag, err := r.pool.Exec(ctx, query, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
