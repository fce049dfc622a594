package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// PriceStore implements storage.PriceStore using ClickHouse.
// The prices table is a ReplacingMergeTree keyed by
// (asset_unit, time, tx_hash, swap_index): re-inserting a point, as the
// outlier flagging path does, supersedes the earlier row.
type PriceStore struct {
	conn *Conn
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(conn *Conn) *PriceStore {
	return &PriceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// InsertBulk appends price points. Resending an already-persisted
// point replaces it on merge.
func (s *PriceStore) InsertBulk(ctx context.Context, prices []*domain.Price) error {
	if len(prices) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO prices (
			time, tx_hash, swap_index, slot, asset_unit, quote_asset_unit,
			provider, price, amount1, amount2, operation, outlier
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range prices {
		if p == nil || p.TxHash == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			p.Time.UTC(), p.TxHash, uint32(p.SwapIndex), uint64(p.Slot),
			p.AssetUnit, p.QuoteAssetUnit,
			p.Provider, p.Price,
			bigString(p.Amount1), bigString(p.Amount2),
			p.Operation, p.Outlier,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAssetTimeRange retrieves prices for an asset within [start, end]
// inclusive, ordered by time ASC.
func (s *PriceStore) GetByAssetTimeRange(ctx context.Context, assetUnit string, start, end time.Time) ([]*domain.Price, error) {
	query := `
		SELECT time, tx_hash, swap_index, slot, asset_unit, quote_asset_unit,
			provider, price, amount1, amount2, operation, outlier
		FROM prices FINAL
		WHERE asset_unit = ? AND time >= ? AND time <= ?
		ORDER BY time ASC, swap_index ASC
	`

	rows, err := s.conn.Query(ctx, query, assetUnit, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query prices by time range: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// scanPrices scans multiple price rows.
func scanPrices(rows chRows) ([]*domain.Price, error) {
	var prices []*domain.Price

	for rows.Next() {
		var p domain.Price
		var swapIndex uint32
		var slot uint64
		var amount1, amount2 string

		err := rows.Scan(
			&p.Time, &p.TxHash, &swapIndex, &slot,
			&p.AssetUnit, &p.QuoteAssetUnit,
			&p.Provider, &p.Price,
			&amount1, &amount2,
			&p.Operation, &p.Outlier,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}

		p.SwapIndex = int(swapIndex)
		p.Slot = int64(slot)
		p.Time = p.Time.UTC()
		p.Amount1 = parseBig(amount1)
		p.Amount2 = parseBig(amount2)
		prices = append(prices, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return prices, nil
}

// bigString renders an amount for storage; amounts routinely exceed
// the 64-bit integer range.
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
