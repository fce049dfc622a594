package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candle // keyed by (symbol, time, resolution)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]*domain.Candle),
	}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// candleKey generates a unique key for a candle.
func candleKey(symbol string, t time.Time, res domain.Resolution) string {
	return fmt.Sprintf("%s|%d|%s", symbol, t.UTC().Unix(), res)
}

// UpsertBulk writes candles, overwriting existing ones at the same key.
func (s *CandleStore) UpsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		if c == nil || c.Symbol == "" || c.Resolution == "" {
			return storage.ErrInvalidInput
		}
		candleCopy := *c
		s.data[candleKey(c.Symbol, c.Time, c.Resolution)] = &candleCopy
	}
	return nil
}

// GetAt retrieves the candle for a symbol at an exact period start.
func (s *CandleStore) GetAt(_ context.Context, symbol string, res domain.Resolution, t time.Time) (*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[candleKey(symbol, t, res)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	candleCopy := *c
	return &candleCopy, nil
}

// GetByTimeRange retrieves all candles of a resolution with period
// start in [start, end] inclusive, ordered by time ASC then symbol.
func (s *CandleStore) GetByTimeRange(_ context.Context, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.Resolution == res && !c.Time.Before(start) && !c.Time.After(end) {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

// LatestPerSymbol returns, for every tracked symbol, its most recent
// candle with period start strictly before the given time.
func (s *CandleStore) LatestPerSymbol(_ context.Context, res domain.Resolution, before time.Time) (map[string]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.Candle)
	for _, c := range s.data {
		if c.Resolution != res || !c.Time.Before(before) {
			continue
		}
		cur, ok := latest[c.Symbol]
		if !ok || c.Time.After(cur.Time) {
			candleCopy := *c
			latest[c.Symbol] = &candleCopy
		}
	}
	return latest, nil
}

// SyncPoint returns the minimum over all tracked symbols of the most
// recent period at the given resolution.
func (s *CandleStore) SyncPoint(_ context.Context, res domain.Resolution) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]time.Time)
	for _, c := range s.data {
		if c.Resolution != res {
			continue
		}
		if cur, ok := latest[c.Symbol]; !ok || c.Time.After(cur) {
			latest[c.Symbol] = c.Time
		}
	}

	if len(latest) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var sync time.Time
	first := true
	for _, t := range latest {
		if first || t.Before(sync) {
			sync = t
			first = false
		}
	}
	return sync, nil
}
