package storage

import (
	"context"
	"time"

	"cardano-dex-candles/internal/domain"
)

// MirroredCandleStore is a CandleStore that forwards writes to a
// primary store and appends them to an analytics history. Reads go to
// the primary only.
type MirroredCandleStore struct {
	Primary CandleStore
	History CandleHistory
}

// Compile-time interface check.
var _ CandleStore = (*MirroredCandleStore)(nil)

// UpsertBulk writes to the primary store, then appends to the history.
func (m *MirroredCandleStore) UpsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if err := m.Primary.UpsertBulk(ctx, candles); err != nil {
		return err
	}
	return m.History.InsertBulk(ctx, candles)
}

// GetAt delegates to the primary store.
func (m *MirroredCandleStore) GetAt(ctx context.Context, symbol string, res domain.Resolution, t time.Time) (*domain.Candle, error) {
	return m.Primary.GetAt(ctx, symbol, res, t)
}

// GetByTimeRange delegates to the primary store.
func (m *MirroredCandleStore) GetByTimeRange(ctx context.Context, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error) {
	return m.Primary.GetByTimeRange(ctx, res, start, end)
}

// LatestPerSymbol delegates to the primary store.
func (m *MirroredCandleStore) LatestPerSymbol(ctx context.Context, res domain.Resolution, before time.Time) (map[string]*domain.Candle, error) {
	return m.Primary.LatestPerSymbol(ctx, res, before)
}

// SyncPoint delegates to the primary store.
func (m *MirroredCandleStore) SyncPoint(ctx context.Context, res domain.Resolution) (time.Time, error) {
	return m.Primary.SyncPoint(ctx, res)
}
