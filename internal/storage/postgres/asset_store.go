package postgres

import (
	"context"
	"fmt"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Upsert registers an asset if its unit is not yet known. Existing
// entries are left untouched so resolved metadata never regresses.
func (s *AssetStore) Upsert(ctx context.Context, a *domain.Asset) error {
	if a == nil || a.Unit == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO assets (
			unit, policy, native_name, decimals, metadata_fetched, pricing_provider
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (unit) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		a.Unit,
		a.Policy,
		a.NativeName,
		a.Decimals,
		a.MetadataFetched,
		a.PricingProvider,
	)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

// GetByUnits retrieves the assets for the given units. Unknown units
// are simply absent from the result.
func (s *AssetStore) GetByUnits(ctx context.Context, units []string) ([]*domain.Asset, error) {
	if len(units) == 0 {
		return nil, nil
	}

	query := `
		SELECT unit, policy, native_name, decimals, metadata_fetched, pricing_provider
		FROM assets
		WHERE unit = ANY($1)
	`

	rows, err := s.pool.Query(ctx, query, units)
	if err != nil {
		return nil, fmt.Errorf("get assets by units: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		err := rows.Scan(
			&a.Unit,
			&a.Policy,
			&a.NativeName,
			&a.Decimals,
			&a.MetadataFetched,
			&a.PricingProvider,
		)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}

// SetDecimals records resolved decimal precision for a unit and marks
// its metadata as fetched. Returns ErrNotFound for unknown units.
func (s *AssetStore) SetDecimals(ctx context.Context, unit string, decimals int) error {
	query := `
		UPDATE assets
		SET decimals = $2, metadata_fetched = TRUE
		WHERE unit = $1
	`

	tag, err := s.pool.Exec(ctx, query, unit, decimals)
	if err != nil {
		return fmt.Errorf("set decimals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
