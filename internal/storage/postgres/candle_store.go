package postgres

import (
	"context"
	"fmt"
	"time"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL.
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// UpsertBulk writes candles atomically, overwriting existing ones at
// the same (symbol, time, resolution) key.
func (s *CandleStore) UpsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO candles (
			symbol, time, resolution, open, high, low, close, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, time, resolution) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	for _, c := range candles {
		if c == nil || c.Symbol == "" || c.Resolution == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			c.Symbol,
			c.Time.UTC(),
			string(c.Resolution),
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
		)
		if err != nil {
			return fmt.Errorf("upsert candle in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAt retrieves the candle for a symbol at an exact period start.
func (s *CandleStore) GetAt(ctx context.Context, symbol string, res domain.Resolution, t time.Time) (*domain.Candle, error) {
	query := `
		SELECT symbol, time, resolution, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND resolution = $2 AND time = $3
	`

	row := s.pool.QueryRow(ctx, query, symbol, string(res), t.UTC())

	c, err := scanCandle(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candle: %w", err)
	}
	return c, nil
}

// GetByTimeRange retrieves all candles of a resolution with period
// start in [start, end] inclusive, ordered by time ASC then symbol.
func (s *CandleStore) GetByTimeRange(ctx context.Context, res domain.Resolution, start, end time.Time) ([]*domain.Candle, error) {
	query := `
		SELECT symbol, time, resolution, open, high, low, close, volume
		FROM candles
		WHERE resolution = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC, symbol ASC
	`

	rows, err := s.pool.Query(ctx, query, string(res), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get candles by time range: %w", err)
	}
	defer rows.Close()

	var candles []*domain.Candle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}

// LatestPerSymbol returns, for every tracked symbol, its most recent
// candle with period start strictly before the given time.
func (s *CandleStore) LatestPerSymbol(ctx context.Context, res domain.Resolution, before time.Time) (map[string]*domain.Candle, error) {
	query := `
		SELECT DISTINCT ON (symbol)
			symbol, time, resolution, open, high, low, close, volume
		FROM candles
		WHERE resolution = $1 AND time < $2
		ORDER BY symbol, time DESC
	`

	rows, err := s.pool.Query(ctx, query, string(res), before.UTC())
	if err != nil {
		return nil, fmt.Errorf("get latest candles per symbol: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]*domain.Candle)
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		latest[c.Symbol] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return latest, nil
}

// SyncPoint returns the minimum over all tracked symbols of the most
// recent period at the given resolution.
func (s *CandleStore) SyncPoint(ctx context.Context, res domain.Resolution) (time.Time, error) {
	query := `
		SELECT MIN(latest)
		FROM (
			SELECT MAX(time) AS latest
			FROM candles
			WHERE resolution = $1
			GROUP BY symbol
		) per_symbol
	`

	var sync *time.Time
	if err := s.pool.QueryRow(ctx, query, string(res)).Scan(&sync); err != nil {
		return time.Time{}, fmt.Errorf("get sync point: %w", err)
	}
	if sync == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return sync.UTC(), nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCandle scans one candle row.
func scanCandle(row rowScanner) (*domain.Candle, error) {
	var c domain.Candle
	var res string
	err := row.Scan(
		&c.Symbol,
		&c.Time,
		&res,
		&c.Open,
		&c.High,
		&c.Low,
		&c.Close,
		&c.Volume,
	)
	if err != nil {
		return nil, err
	}
	c.Resolution = domain.Resolution(res)
	c.Time = c.Time.UTC()
	return &c, nil
}
