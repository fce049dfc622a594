// Package memory provides in-memory store implementations for tests
// and single-process runs.
package memory

import (
	"context"
	"sync"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset // keyed by unit
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data: make(map[string]*domain.Asset),
	}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Upsert registers an asset if its unit is not yet known. Existing
// entries are left untouched so resolved metadata never regresses.
func (s *AssetStore) Upsert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.Unit == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.Unit]; exists {
		return nil
	}
	s.data[a.Unit] = cloneAsset(a)
	return nil
}

// GetByUnits retrieves the assets for the given units. Unknown units
// are simply absent from the result.
func (s *AssetStore) GetByUnits(_ context.Context, units []string) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Asset
	for _, unit := range units {
		if a, ok := s.data[unit]; ok {
			result = append(result, cloneAsset(a))
		}
	}
	return result, nil
}

// SetDecimals records resolved decimal precision for a unit and marks
// its metadata as fetched.
func (s *AssetStore) SetDecimals(_ context.Context, unit string, decimals int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data[unit]
	if !ok {
		return storage.ErrNotFound
	}

	d := decimals
	fetched := true
	a.Decimals = &d
	a.MetadataFetched = &fetched
	return nil
}

// cloneAsset deep-copies an asset so callers cannot mutate store state.
func cloneAsset(a *domain.Asset) *domain.Asset {
	c := *a
	if a.Decimals != nil {
		d := *a.Decimals
		c.Decimals = &d
	}
	if a.MetadataFetched != nil {
		f := *a.MetadataFetched
		c.MetadataFetched = &f
	}
	return &c
}
