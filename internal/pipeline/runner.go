// Package pipeline wires the block stream through qualification,
// classification, pricing and candle aggregation.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/candles"
	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/chainsync"
	"cardano-dex-candles/internal/classifier"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/observability"
	"cardano-dex-candles/internal/pricing"
	"cardano-dex-candles/internal/qualifier"
	"cardano-dex-candles/internal/storage"
)

// Runner drives the per-block processing flow:
// qualify -> classify -> price -> persist -> aggregate.
type Runner struct {
	source    chainsync.BlockSource
	qualifier *qualifier.Qualifier
	registry  *classifier.Registry
	converter *pricing.Converter
	engine    *candles.Engine
	prices    storage.PriceStore
	logger    *zap.Logger
}

// Options configures a Runner.
type Options struct {
	Source    chainsync.BlockSource
	Qualifier *qualifier.Qualifier
	Registry  *classifier.Registry
	Converter *pricing.Converter
	Engine    *candles.Engine
	Prices    storage.PriceStore
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("block source is required")
	}
	if opts.Qualifier == nil {
		return nil, fmt.Errorf("qualifier is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("classifier registry is required")
	}
	if opts.Converter == nil {
		return nil, fmt.Errorf("price converter is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("candle engine is required")
	}
	if opts.Prices == nil {
		return nil, fmt.Errorf("price store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source:    opts.Source,
		qualifier: opts.Qualifier,
		registry:  opts.Registry,
		converter: opts.Converter,
		engine:    opts.Engine,
		prices:    opts.Prices,
		logger:    logger,
	}, nil
}

// Persist stores a price batch and hands it to the candle engine's
// working set. Used directly as the converter's drain sink so recovered
// prices flow into the same path as live ones.
func (r *Runner) Persist(ctx context.Context, prices []domain.Price) error {
	if len(prices) == 0 {
		return nil
	}
	refs := make([]*domain.Price, len(prices))
	for i := range prices {
		refs[i] = &prices[i]
	}
	if err := r.prices.InsertBulk(ctx, refs); err != nil {
		return fmt.Errorf("persist prices: %w", err)
	}
	r.engine.Buffer(prices)
	return nil
}

// Run consumes the block stream from fromSlot until the context is
// cancelled or the stream closes. Storage failures abort the run so
// the stream can resume from the persisted sync point.
func (r *Runner) Run(ctx context.Context, fromSlot int64) error {
	blocks, err := r.source.Blocks(ctx, fromSlot)
	if err != nil {
		return fmt.Errorf("subscribe blocks: %w", err)
	}

	r.logger.Info("block stream started", zap.Int64("from_slot", fromSlot))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				r.logger.Info("block stream closed")
				return nil
			}
			if err := r.ProcessBlock(ctx, block); err != nil {
				return fmt.Errorf("block %d: %w", block.Slot, err)
			}
		}
	}
}

// ProcessBlock runs one block through the full flow. Blocks with no
// qualifying transactions still drive the candle engine: boundary
// crossings finalise periods regardless of trading activity.
func (r *Runner) ProcessBlock(ctx context.Context, block chain.Block) error {
	qualified, err := r.qualifier.Qualify(ctx, block)
	if err != nil {
		return fmt.Errorf("qualify: %w", err)
	}

	var swaps []domain.Swap
	for _, tx := range qualified {
		swaps = append(swaps, r.registry.ComputeSwaps(tx)...)
	}

	prices, err := r.converter.Convert(ctx, swaps)
	if err != nil {
		return fmt.Errorf("convert swaps: %w", err)
	}

	if len(prices) > 0 {
		refs := make([]*domain.Price, len(prices))
		for i := range prices {
			refs[i] = &prices[i]
		}
		if err := r.prices.InsertBulk(ctx, refs); err != nil {
			return fmt.Errorf("persist prices: %w", err)
		}
	}

	if err := r.engine.ProcessBlock(ctx, block.Slot, prices); err != nil {
		return fmt.Errorf("aggregate candles: %w", err)
	}

	observability.RecordBlockProcessed(block.Slot)
	observability.RecordTransactionsQualified(len(qualified))
	observability.RecordSwapsClassified(len(swaps))
	observability.RecordPricesConverted(len(prices))
	observability.RecordPricesDeferred(len(swaps) - len(prices))
	observability.SetPendingMetadata(r.converter.PendingCount())

	if len(swaps) > 0 {
		r.logger.Debug("processed block",
			zap.Int64("slot", block.Slot),
			zap.Int("qualified", len(qualified)),
			zap.Int("swaps", len(swaps)),
			zap.Int("prices", len(prices)),
			zap.Int("deferred", len(swaps)-len(prices)))
	}
	return nil
}
