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

type apiKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository creates the store backing caller credential validation.
func NewAPIKeyRepository(pool *pgxpool.Pool) ports.APIKeyRepository {
	return &apiKeyRepository{pool: pool}
}

var _ ports.APIKeyRepository = (*apiKeyRepository)(nil)

func (r *apiKeyRepository) FindActiveKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `
		SELECT key_id, key, name, is_active, created_at
		FROM api_keys
		WHERE key = $1 AND is_active;
	`
	return r.scanKey(r.pool.QueryRow(ctx, query, key))
}

func (r *apiKeyRepository) FindKeyByName(ctx context.Context, name string) (*domain.APIKey, error) {
	query := `
		SELECT key_id, key, name, is_active, created_at
		FROM api_keys
		WHERE name = $1;
	`
	return r.scanKey(r.pool.QueryRow(ctx, query, name))
}

func (r *apiKeyRepository) SaveKey(ctx context.Context, key string, name string) error {
	query := `
		INSERT INTO api_keys (key, name, is_active, created_at)
		VALUES ($1, $2, TRUE, $3);
	`
	if _, err := r.pool.Exec(ctx, query, key, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save API key %q: %w", name, err)
	}
	return nil
}

func (r *apiKeyRepository) scanKey(row pgx.Row) (*domain.APIKey, error) {
	var k domain.APIKey
	err := row.Scan(&k.KeyID, &k.Key, &k.Name, &k.IsActive, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	return &k, nil
}
