package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/finvault/ledgerd/internal/core/ports"
	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/finvault/ledgerd/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxNumberAttempts bounds regeneration when a random account number collides.
const maxNumberAttempts = 5

type accountService struct {
	ledgerRepo ports.LedgerRepository
}

// NewAccountService creates the account-creation collaborator.
func NewAccountService(ledgerRepo ports.LedgerRepository) portssvc.AccountSvc {
	return &accountService{ledgerRepo: ledgerRepo}
}

var _ portssvc.AccountSvc = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, holderName string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return nil, fmt.Errorf("holder name is required: %w", apperrors.ErrValidation)
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := utils.GenerateAccountNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to generate account number: %w", err)
		}

		account := domain.Account{
			AccountID:     uuid.NewString(),
			AccountNumber: number,
			HolderName:    holderName,
			Balance:       decimal.Zero,
			IsActive:      true,
			CreatedAt:     time.Now().UTC(),
		}

		err = s.ledgerRepo.SaveAccount(ctx, account)
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Account number collision, regenerating",
				slog.String("account_number", number))
			continue
		}
		if err != nil {
			logger.Error("Failed to save account", slog.String("error", err.Error()))
			return nil, err
		}

		logger.Info("Account created",
			slog.String("account_id", account.AccountID),
			slog.String("account_number", account.AccountNumber))
		return &account, nil
	}

	return nil, fmt.Errorf("could not allocate a unique account number after %d attempts", maxNumberAttempts)
}

func (s *accountService) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.ledgerRepo.FindAccountByNumber(ctx, accountNumber)
}
