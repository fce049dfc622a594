package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// CandleHistoryStore implements storage.CandleHistory using ClickHouse.
// The candle_history table is a ReplacingMergeTree keyed by
// (symbol, resolution, time): recomputations of an open period replace
// the earlier row on merge.
type CandleHistoryStore struct {
	conn *Conn
}

// NewCandleHistoryStore creates a new CandleHistoryStore.
func NewCandleHistoryStore(conn *Conn) *CandleHistoryStore {
	return &CandleHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleHistory = (*CandleHistoryStore)(nil)

// InsertBulk appends candles to the history.
func (s *CandleHistoryStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candle_history (
			symbol, time, resolution, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		if c == nil || c.Symbol == "" || c.Resolution == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			c.Symbol, c.Time.UTC(), string(c.Resolution),
			c.Open, c.High, c.Low, c.Close, c.Volume,
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

// GetBySymbolTimeRange retrieves a symbol's candles of a resolution
// within [start, end] inclusive, ordered by time ASC.
func (s *CandleHistoryStore) GetBySymbolTimeRange(ctx context.Context, symbol string, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error) {
	query := `
		SELECT symbol, time, resolution, open, high, low, close, volume
		FROM candle_history FINAL
		WHERE symbol = ? AND resolution = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(res), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query candle history: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		var r string
		err := rows.Scan(
			&c.Symbol, &c.Time, &r,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle history row: %w", err)
		}
		c.Resolution = domain.Resolution(r)
		c.Time = c.Time.UTC()
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle history rows: %w", err)
	}

	return candles, nil
}
