package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

var candleBase = time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)

func testCandle(symbol string, offset time.Duration, close float64) *domain.Candle {
	return &domain.Candle{
		Symbol:     symbol,
		Time:       candleBase.Add(offset),
		Resolution: domain.Resolution15m,
		Open:       close, High: close, Low: close, Close: close,
		Volume: 1,
	}
}

func TestCandleStore_UpsertBulkAndGetAt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 1.5)}))

	got, err := store.GetAt(ctx, "aaa", domain.Resolution15m, candleBase)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Close)
	assert.True(t, got.Time.Equal(candleBase))
	assert.Equal(t, domain.Resolution15m, got.Resolution)

	_, err = store.GetAt(ctx, "aaa", domain.Resolution1h, candleBase)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandleStore_UpsertBulkOverwrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 1.0)}))
	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 2.0)}))

	got, err := store.GetAt(ctx, "aaa", domain.Resolution15m, candleBase)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Close)
}

func TestCandleStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{
		testCandle("bbb", 15*time.Minute, 2.0),
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 15*time.Minute, 1.5),
		testCandle("aaa", 45*time.Minute, 9.0),
	}))

	// Both range ends are inclusive.
	got, err := store.GetByTimeRange(ctx, domain.Resolution15m, candleBase, candleBase.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "aaa", got[0].Symbol)
	assert.Equal(t, "aaa", got[1].Symbol)
	assert.Equal(t, "bbb", got[2].Symbol)
	assert.True(t, got[1].Time.Equal(candleBase.Add(15*time.Minute)))
}

func TestCandleStore_LatestPerSymbol(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 15*time.Minute, 1.5),
		testCandle("bbb", 0, 2.0),
	}))

	latest, err := store.LatestPerSymbol(ctx, domain.Resolution15m, candleBase.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, latest, 2)

	// The cutoff is exclusive: aaa's candle at the boundary is ignored.
	assert.Equal(t, 1.0, latest["aaa"].Close)
	assert.Equal(t, 2.0, latest["bbb"].Close)
}

func TestCandleStore_SyncPoint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	_, err := store.SyncPoint(ctx, domain.Resolution15m)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Candle{
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 30*time.Minute, 1.5),
		testCandle("bbb", 15*time.Minute, 2.0),
	}))

	// The slowest symbol pins the sync point.
	sync, err := store.SyncPoint(ctx, domain.Resolution15m)
	require.NoError(t, err)
	assert.True(t, sync.Equal(candleBase.Add(15*time.Minute)))
}

func TestCandleStore_UpsertBulkValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCandleStore(pool)

	err := store.UpsertBulk(ctx, []*domain.Candle{{Time: candleBase, Resolution: domain.Resolution15m}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// The aborted batch must leave nothing behind.
	_, err = store.SyncPoint(ctx, domain.Resolution15m)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
