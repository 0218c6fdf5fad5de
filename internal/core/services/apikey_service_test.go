package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/finvault/ledgerd/internal/apperrors"
	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/finvault/ledgerd/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAPIKeyRepository)
	svc := services.NewAPIKeyService(repo)

	repo.On("FindActiveKey", ctx, "bank_good").Return(&domain.APIKey{Key: "bank_good", IsActive: true}, nil).Once()
	require.NoError(t, svc.ValidateKey(ctx, "bank_good"))

	repo.On("FindActiveKey", ctx, "bank_bad").Return(nil, apperrors.ErrNotFound).Once()
	require.ErrorIs(t, svc.ValidateKey(ctx, "bank_bad"), apperrors.ErrNotFound)
}

func TestEnsureDefaultKey_ReturnsExisting(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAPIKeyRepository)
	svc := services.NewAPIKeyService(repo)

	repo.On("FindKeyByName", ctx, "default").Return(&domain.APIKey{Key: "bank_existing", Name: "default"}, nil).Once()

	key, err := svc.EnsureDefaultKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "bank_existing", key)
	repo.AssertNotCalled(t, "SaveKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureDefaultKey_GeneratesWhenMissing(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAPIKeyRepository)
	svc := services.NewAPIKeyService(repo)

	repo.On("FindKeyByName", ctx, "default").Return(nil, apperrors.ErrNotFound).Once()

	var saved string
	repo.On("SaveKey", ctx, mock.AnythingOfType("string"), "default").
		Run(func(args mock.Arguments) { saved = args.Get(1).(string) }).
		Return(nil).Once()

	key, err := svc.EnsureDefaultKey(ctx)
	require.NoError(t, err)
	require.Equal(t, saved, key)
	require.True(t, strings.HasPrefix(key, "bank_"))
	repo.AssertExpectations(t)
}
