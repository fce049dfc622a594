package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

const testUnit = "c0ee29a85b13209423b10447d3c2e6a50641a15c57770e27cb9d50734d494c4b"

func TestAssetStore_UpsertAndGetByUnits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	asset := &domain.Asset{
		Unit:            testUnit,
		Policy:          testUnit[:56],
		NativeName:      testUnit[56:],
		PricingProvider: "dex",
	}
	require.NoError(t, store.Upsert(ctx, asset))

	got, err := store.GetByUnits(ctx, []string{testUnit, "unknown"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, asset.Unit, got[0].Unit)
	assert.Equal(t, asset.Policy, got[0].Policy)
	assert.Equal(t, asset.NativeName, got[0].NativeName)
	assert.Equal(t, asset.PricingProvider, got[0].PricingProvider)
	assert.Nil(t, got[0].Decimals)
	assert.False(t, got[0].Priceable())
}

func TestAssetStore_UpsertKeepsExistingRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.Asset{Unit: testUnit, Policy: "original"}))
	require.NoError(t, store.SetDecimals(ctx, testUnit, 6))

	// Re-registering the unit must not wipe the resolved metadata.
	require.NoError(t, store.Upsert(ctx, &domain.Asset{Unit: testUnit, Policy: "rewritten"}))

	got, err := store.GetByUnits(ctx, []string{testUnit})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "original", got[0].Policy)
	require.NotNil(t, got[0].Decimals)
	assert.Equal(t, 6, *got[0].Decimals)
	assert.True(t, got[0].Priceable())
}

func TestAssetStore_UpsertValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.Asset{}), storage.ErrInvalidInput)
}

func TestAssetStore_SetDecimalsUnknownUnit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	assert.ErrorIs(t, store.SetDecimals(ctx, "unknown", 6), storage.ErrNotFound)
}

func TestAssetStore_GetByUnitsEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	got, err := store.GetByUnits(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
