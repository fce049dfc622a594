package memory

import (
	"context"
	"errors"
	"testing"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/storage"
)

func TestAssetStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewAssetStore()

	a := &domain.Asset{Unit: "unit1", Policy: "pol", NativeName: "name"}
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.GetByUnits(ctx, []string{"unit1", "missing"})
	if err != nil {
		t.Fatalf("GetByUnits: %v", err)
	}
	if len(got) != 1 || got[0].Unit != "unit1" {
		t.Errorf("GetByUnits = %+v", got)
	}
}

func TestAssetStore_UpsertDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewAssetStore()

	if err := s.Upsert(ctx, &domain.Asset{Unit: "unit1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetDecimals(ctx, "unit1", 6); err != nil {
		t.Fatalf("SetDecimals: %v", err)
	}

	// Re-registering the unit must not wipe the resolved metadata.
	if err := s.Upsert(ctx, &domain.Asset{Unit: "unit1"}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := s.GetByUnits(ctx, []string{"unit1"})
	if err != nil {
		t.Fatalf("GetByUnits: %v", err)
	}
	if len(got) != 1 || !got[0].Priceable() || *got[0].Decimals != 6 {
		t.Errorf("metadata regressed: %+v", got)
	}
}

func TestAssetStore_UpsertValidation(t *testing.T) {
	s := NewAssetStore()

	if err := s.Upsert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil asset: %v", err)
	}
	if err := s.Upsert(context.Background(), &domain.Asset{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty unit: %v", err)
	}
}

func TestAssetStore_SetDecimalsUnknownUnit(t *testing.T) {
	s := NewAssetStore()

	if err := s.SetDecimals(context.Background(), "missing", 6); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAssetStore_ClonesOnRead(t *testing.T) {
	ctx := context.Background()
	s := NewAssetStore()

	if err := s.Upsert(ctx, &domain.Asset{Unit: "unit1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetDecimals(ctx, "unit1", 6); err != nil {
		t.Fatalf("SetDecimals: %v", err)
	}

	got, _ := s.GetByUnits(ctx, []string{"unit1"})
	*got[0].Decimals = 99

	again, _ := s.GetByUnits(ctx, []string{"unit1"})
	if *again[0].Decimals != 6 {
		t.Error("mutating a returned asset changed store state")
	}
}
