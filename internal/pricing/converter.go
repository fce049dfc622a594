// Package pricing converts swap facts into decimal prices. Swaps
// referencing assets whose decimal precision is not yet published are
// buffered and retried out of band: freshly minted tokens routinely
// trade before their registry entry exists, and pricing them with a
// guessed precision would silently corrupt the candle series.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/metadata"
	"cardano-dex-candles/internal/retry"
	"cardano-dex-candles/internal/storage"
)

// DefaultDrainInterval is how often the background drain runs.
const DefaultDrainInterval = 30 * time.Second

// Sink receives prices produced by a background drain cycle.
type Sink func(ctx context.Context, prices []domain.Price) error

// Converter turns swaps into prices, deferring swaps with unresolved
// asset metadata.
type Converter struct {
	assets   storage.AssetStore
	service  metadata.Service
	slots    chain.SlotConverter
	provider string
	retrier  *retry.Retrier
	interval time.Duration
	batch    int
	sink     Sink
	logger   *zap.Logger

	mu       sync.Mutex
	pending  []domain.Swap
	awaiting map[string]struct{} // units with unresolved metadata
}

// Options configures a Converter.
type Options struct {
	Assets   storage.AssetStore
	Service  metadata.Service
	Slots    chain.SlotConverter
	Provider string
	// Retrier bounds metadata fetch attempts; defaults to retry.New().
	Retrier *retry.Retrier
	// DrainInterval defaults to DefaultDrainInterval.
	DrainInterval time.Duration
	// BatchSize defaults to metadata.MaxBatchSize.
	BatchSize int
	// Sink receives prices recovered by background drains. Optional.
	Sink Sink
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// New creates a Converter.
func New(opts Options) (*Converter, error) {
	if opts.Assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("metadata service is required")
	}
	c := &Converter{
		assets:   opts.Assets,
		service:  opts.Service,
		slots:    opts.Slots,
		provider: opts.Provider,
		retrier:  opts.Retrier,
		interval: opts.DrainInterval,
		batch:    opts.BatchSize,
		sink:     opts.Sink,
		logger:   opts.Logger,
		awaiting: make(map[string]struct{}),
	}
	if c.retrier == nil {
		c.retrier = retry.New()
	}
	if c.interval <= 0 {
		c.interval = DefaultDrainInterval
	}
	if c.batch <= 0 || c.batch > metadata.MaxBatchSize {
		c.batch = metadata.MaxBatchSize
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Convert prices the swaps whose asset metadata is resolved and
// buffers the rest. Unknown units are registered with the asset store
// on first sighting.
func (c *Converter) Convert(ctx context.Context, swaps []domain.Swap) ([]domain.Price, error) {
	if len(swaps) == 0 {
		return nil, nil
	}

	if err := c.registerUnits(ctx, swaps); err != nil {
		return nil, err
	}

	assets, err := c.assetsByUnit(ctx, swaps)
	if err != nil {
		return nil, err
	}

	var prices []domain.Price
	for _, swap := range swaps {
		a1 := assets[swap.Asset1Unit]
		a2 := assets[swap.Asset2Unit]
		if a1.Priceable() && a2.Priceable() {
			prices = append(prices, c.price(swap, *a1.Decimals, *a2.Decimals))
			continue
		}
		c.bufferSwap(swap, a1, a2)
	}
	return prices, nil
}

// price computes the decimal-adjusted price of one swap.
func (c *Converter) price(swap domain.Swap, dec1, dec2 int) domain.Price {
	scaled1 := decimal.NewFromBigInt(swap.Amount1, -int32(dec1))
	scaled2 := decimal.NewFromBigInt(swap.Amount2, -int32(dec2))
	value := 0.0
	if !scaled2.IsZero() {
		value = scaled1.Div(scaled2).InexactFloat64()
	}
	return domain.Price{
		Time:           c.slots.ToTime(swap.Slot),
		TxHash:         swap.TxHash,
		SwapIndex:      swap.EventIndex,
		Slot:           swap.Slot,
		AssetUnit:      swap.Asset2Unit,
		QuoteAssetUnit: swap.Asset1Unit,
		Provider:       c.provider,
		Price:          value,
		Amount1:        swap.Amount1,
		Amount2:        swap.Amount2,
		Operation:      swap.Operation,
	}
}

// bufferSwap buffers a swap until the missing legs resolve.
func (c *Converter) bufferSwap(swap domain.Swap, a1, a2 *domain.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, swap)
	if !a1.Priceable() {
		c.awaiting[swap.Asset1Unit] = struct{}{}
	}
	if !a2.Priceable() {
		c.awaiting[swap.Asset2Unit] = struct{}{}
	}
}

// PendingCount reports how many swaps await metadata.
func (c *Converter) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// registerUnits ensures every unit referenced by the swaps exists in
// the registry. The native asset is registered with fixed precision.
func (c *Converter) registerUnits(ctx context.Context, swaps []domain.Swap) error {
	seen := make(map[string]struct{})
	for _, swap := range swaps {
		for _, unit := range []string{swap.Asset1Unit, swap.Asset2Unit} {
			if _, ok := seen[unit]; ok {
				continue
			}
			seen[unit] = struct{}{}

			var asset *domain.Asset
			if unit == domain.LovelaceUnit {
				asset = domain.NewLovelaceAsset(c.provider)
			} else {
				asset = &domain.Asset{
					Unit:            unit,
					Policy:          policyOf(unit),
					NativeName:      nameOf(unit),
					PricingProvider: c.provider,
				}
			}
			if err := c.assets.Upsert(ctx, asset); err != nil {
				return fmt.Errorf("register asset %s: %w", unit, err)
			}
		}
	}
	return nil
}

// assetsByUnit loads the registry entries for the swaps' units.
func (c *Converter) assetsByUnit(ctx context.Context, swaps []domain.Swap) (map[string]*domain.Asset, error) {
	var units []string
	seen := make(map[string]struct{})
	for _, swap := range swaps {
		for _, unit := range []string{swap.Asset1Unit, swap.Asset2Unit} {
			if _, ok := seen[unit]; !ok {
				seen[unit] = struct{}{}
				units = append(units, unit)
			}
		}
	}

	assets, err := c.assets.GetByUnits(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	byUnit := make(map[string]*domain.Asset, len(assets))
	for _, a := range assets {
		byUnit[a.Unit] = a
	}
	return byUnit, nil
}

// policyOf splits the minting policy out of a unit identifier.
func policyOf(unit string) string {
	if len(unit) < 56 {
		return ""
	}
	return unit[:56]
}

// nameOf splits the asset name out of a unit identifier.
func nameOf(unit string) string {
	if len(unit) < 56 {
		return unit
	}
	return unit[56:]
}
