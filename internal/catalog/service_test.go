package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

func TestPartnerStateReturnsOwnedShop(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	owner := uuid.New()
	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", owner)
	require.NoError(t, err)

	state, err := svc.PartnerState(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, state.ShopID)
	assert.Equal(t, "Svyaznoy", state.Name)
	assert.True(t, state.Active)
}

func TestSetPartnerStateTogglesAndPersists(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	owner := uuid.New()
	shop, err := repo.GetOrCreateShop(ctx, "Svyaznoy", owner)
	require.NoError(t, err)

	state, err := svc.SetPartnerState(ctx, owner, false)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, state.ShopID)
	assert.False(t, state.Active)

	var row models.Shop
	require.NoError(t, db.First(&row, "id = ?", shop.ID).Error)
	assert.False(t, row.Active)

	// toggling back reuses the same shop row
	state, err = svc.SetPartnerState(ctx, owner, true)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, state.ShopID)
	assert.True(t, state.Active)
}

func TestPartnerStateWithoutShopIsNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.PartnerState(context.Background(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
