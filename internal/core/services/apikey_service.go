package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/ports"
	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/finvault/ledgerd/internal/utils"
)

const defaultKeyName = "default"

type apiKeyService struct {
	apiKeyRepo ports.APIKeyRepository
}

// NewAPIKeyService creates the credential-validation collaborator.
func NewAPIKeyService(apiKeyRepo ports.APIKeyRepository) portssvc.APIKeySvc {
	return &apiKeyService{apiKeyRepo: apiKeyRepo}
}

var _ portssvc.APIKeySvc = (*apiKeyService)(nil)

func (s *apiKeyService) ValidateKey(ctx context.Context, key string) error {
	if _, err := s.apiKeyRepo.FindActiveKey(ctx, key); err != nil {
		return err
	}
	return nil
}

// EnsureDefaultKey returns the default API key, generating and persisting one
// on first startup so the service is usable out of the box.
func (s *apiKeyService) EnsureDefaultKey(ctx context.Context) (string, error) {
	existing, err := s.apiKeyRepo.FindKeyByName(ctx, defaultKeyName)
	if err == nil {
		return existing.Key, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return "", fmt.Errorf("failed to look up default API key: %w", err)
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.apiKeyRepo.SaveKey(ctx, key, defaultKeyName); err != nil {
		return "", err
	}

	middleware.GetLoggerFromCtx(ctx).Info("Generated default API key",
		slog.String("name", defaultKeyName))
	return key, nil
}
