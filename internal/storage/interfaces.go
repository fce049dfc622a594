package storage

import (
	"context"
	"time"

	"cardano-dex-candles/internal/domain"
)

// AssetStore provides access to the asset registry.
type AssetStore interface {
	// Upsert registers an asset if its unit is not yet known.
	// Existing entries are left untouched.
	Upsert(ctx context.Context, a *domain.Asset) error

	// GetByUnits retrieves the assets for the given units.
	// Unknown units are simply absent from the result.
	GetByUnits(ctx context.Context, units []string) ([]*domain.Asset, error)

	// SetDecimals records resolved decimal precision for a unit and
	// marks its metadata as fetched. Returns ErrNotFound for unknown units.
	SetDecimals(ctx context.Context, unit string, decimals int) error
}

// PriceStore provides access to the derived price timeseries.
type PriceStore interface {
	// InsertBulk appends price points. Resending an already-persisted
	// point is safe (idempotent upsert on (time, tx_hash, swap_index)).
	InsertBulk(ctx context.Context, prices []*domain.Price) error

	// GetByAssetTimeRange retrieves prices for an asset within
	// [start, end] inclusive, ordered by time ASC.
	GetByAssetTimeRange(ctx context.Context, assetUnit string, start, end time.Time) ([]*domain.Price, error)
}

// CandleStore provides access to OHLCV candles.
type CandleStore interface {
	// UpsertBulk writes candles keyed by (symbol, time, resolution).
	// Resending an already-persisted candle overwrites it (idempotent).
	UpsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetAt retrieves the candle for a symbol at an exact period start.
	// Returns ErrNotFound when absent.
	GetAt(ctx context.Context, symbol string, res domain.Resolution, t time.Time) (*domain.Candle, error)

	// GetByTimeRange retrieves all candles of a resolution with
	// period start in [start, end] inclusive, ordered by time ASC.
	GetByTimeRange(ctx context.Context, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error)

	// LatestPerSymbol returns, for every tracked symbol, its most
	// recent candle with period start strictly before the given time.
	LatestPerSymbol(ctx context.Context, res domain.Resolution, before time.Time) (map[string]*domain.Candle, error)

	// SyncPoint returns the minimum over all tracked symbols of the
	// most recent finalized period at the given resolution. Returns
	// ErrNotFound when no candles exist yet.
	SyncPoint(ctx context.Context, res domain.Resolution) (time.Time, error)
}

// CandleHistory is the append-only analytics mirror of the candle
// series.
type CandleHistory interface {
	// InsertBulk appends candles to the history.
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetBySymbolTimeRange retrieves a symbol's candles of a resolution
	// within [start, end] inclusive, ordered by time ASC.
	GetBySymbolTimeRange(ctx context.Context, symbol string, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error)
}
