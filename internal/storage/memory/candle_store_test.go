package memory

import (
	"context"
	"errors"
	"testing"
	"time"

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

func TestCandleStore_UpsertAndGetAt(t *testing.T) {
	ctx := context.Background()
	s := NewCandleStore()

	if err := s.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 1.0)}); err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}

	got, err := s.GetAt(ctx, "aaa", domain.Resolution15m, candleBase)
	if err != nil {
		t.Fatalf("GetAt: %v", err)
	}
	if got.Close != 1.0 {
		t.Errorf("close = %v", got.Close)
	}

	if _, err := s.GetAt(ctx, "aaa", domain.Resolution1h, candleBase); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("wrong resolution: %v", err)
	}
	if _, err := s.GetAt(ctx, "bbb", domain.Resolution15m, candleBase); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown symbol: %v", err)
	}
}

func TestCandleStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewCandleStore()

	if err := s.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 1.0)}); err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}
	if err := s.UpsertBulk(ctx, []*domain.Candle{testCandle("aaa", 0, 2.0)}); err != nil {
		t.Fatalf("second UpsertBulk: %v", err)
	}

	got, _ := s.GetAt(ctx, "aaa", domain.Resolution15m, candleBase)
	if got.Close != 2.0 {
		t.Errorf("close = %v, want the rewrite", got.Close)
	}
}

func TestCandleStore_GetByTimeRange(t *testing.T) {
	ctx := context.Background()
	s := NewCandleStore()

	err := s.UpsertBulk(ctx, []*domain.Candle{
		testCandle("bbb", 15*time.Minute, 2.0),
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 15*time.Minute, 1.5),
		testCandle("aaa", 45*time.Minute, 9.0),
	})
	if err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}

	got, err := s.GetByTimeRange(ctx, domain.Resolution15m, candleBase, candleBase.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	// Ordered by time, then symbol.
	if got[0].Symbol != "aaa" || got[1].Symbol != "aaa" || got[2].Symbol != "bbb" {
		t.Errorf("order = %s, %s, %s", got[0].Symbol, got[1].Symbol, got[2].Symbol)
	}
}

func TestCandleStore_LatestPerSymbol(t *testing.T) {
	ctx := context.Background()
	s := NewCandleStore()

	err := s.UpsertBulk(ctx, []*domain.Candle{
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 15*time.Minute, 1.5),
		testCandle("bbb", 0, 2.0),
	})
	if err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}

	latest, err := s.LatestPerSymbol(ctx, domain.Resolution15m, candleBase.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("LatestPerSymbol: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("symbols = %d, want 2", len(latest))
	}
	// The boundary is exclusive: aaa's candle at the cutoff is ignored.
	if latest["aaa"].Close != 1.0 {
		t.Errorf("aaa latest = %+v", latest["aaa"])
	}
	if latest["bbb"].Close != 2.0 {
		t.Errorf("bbb latest = %+v", latest["bbb"])
	}
}

func TestCandleStore_SyncPoint(t *testing.T) {
	ctx := context.Background()
	s := NewCandleStore()

	if _, err := s.SyncPoint(ctx, domain.Resolution15m); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("empty store: %v", err)
	}

	err := s.UpsertBulk(ctx, []*domain.Candle{
		testCandle("aaa", 0, 1.0),
		testCandle("aaa", 30*time.Minute, 1.5),
		testCandle("bbb", 15*time.Minute, 2.0),
	})
	if err != nil {
		t.Fatalf("UpsertBulk: %v", err)
	}

	// The slowest symbol pins the sync point.
	sync, err := s.SyncPoint(ctx, domain.Resolution15m)
	if err != nil {
		t.Fatalf("SyncPoint: %v", err)
	}
	if !sync.Equal(candleBase.Add(15 * time.Minute)) {
		t.Errorf("sync point = %s", sync)
	}
}

func TestCandleStore_UpsertValidation(t *testing.T) {
	s := NewCandleStore()

	err := s.UpsertBulk(context.Background(), []*domain.Candle{{Time: candleBase}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing symbol: %v", err)
	}
}
