package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Price // keyed by (time, tx_hash, swap_index)
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[string]*domain.Price),
	}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// priceKey generates a unique key for a price point.
func priceKey(t time.Time, txHash string, swapIndex int) string {
	return fmt.Sprintf("%d|%s|%d", t.UTC().UnixNano(), txHash, swapIndex)
}

// InsertBulk adds price points. Resending an already-persisted point
// overwrites it, so outlier re-flagging is a plain re-insert.
func (s *PriceStore) InsertBulk(_ context.Context, prices []*domain.Price) error {
	if len(prices) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range prices {
		if p == nil || p.TxHash == "" {
			return storage.ErrInvalidInput
		}
		s.data[priceKey(p.Time, p.TxHash, p.SwapIndex)] = clonePrice(p)
	}
	return nil
}

// GetByAssetTimeRange retrieves prices for an asset within [start, end]
// inclusive, ordered by time ASC.
func (s *PriceStore) GetByAssetTimeRange(_ context.Context, assetUnit string, start, end time.Time) ([]*domain.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Price
	for _, p := range s.data {
		if p.AssetUnit == assetUnit && !p.Time.Before(start) && !p.Time.After(end) {
			result = append(result, clonePrice(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Time.Equal(result[j].Time) {
			return result[i].Time.Before(result[j].Time)
		}
		return result[i].SwapIndex < result[j].SwapIndex
	})

	return result, nil
}

// clonePrice deep-copies a price so callers cannot mutate store state.
func clonePrice(p *domain.Price) *domain.Price {
	c := *p
	if p.Amount1 != nil {
		c.Amount1 = new(big.Int).Set(p.Amount1)
	}
	if p.Amount2 != nil {
		c.Amount2 = new(big.Int).Set(p.Amount2)
	}
	if p.Outlier != nil {
		o := *p.Outlier
		c.Outlier = &o
	}
	return &c
}
