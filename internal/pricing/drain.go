package pricing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/metadata"
	"cardano-dex-candles/internal/observability"
	"cardano-dex-candles/internal/retry"
)

// Run drives the background drain until the context is cancelled.
// Each cycle batches unresolved units to the metadata service and
// re-converts the swaps that became priceable.
func (c *Converter) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Drain(ctx); err != nil {
				c.logger.Warn("metadata drain cycle failed, items stay buffered", zap.Error(err))
			}
		}
	}
}

// Drain runs one drain cycle: fetch metadata for awaiting units, update
// the registry and re-convert the swaps that are now priceable. A fetch
// failure after the bounded retries aborts the cycle; buffered swaps
// are never dropped and are retried on the next cycle.
func (c *Converter) Drain(ctx context.Context) error {
	units := c.snapshotAwaiting()
	if len(units) == 0 {
		return nil
	}

	resolved := 0
	for start := 0; start < len(units); start += c.batch {
		end := start + c.batch
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]

		results, err := retry.DoWithData(ctx, c.retrier, func(ctx context.Context) ([]metadata.Decimals, error) {
			return c.service.Decimals(ctx, batch)
		})
		if err != nil {
			observability.RecordMetadataBatch("error")
			return fmt.Errorf("fetch metadata for %d units: %w", len(batch), err)
		}
		observability.RecordMetadataBatch("ok")

		for _, r := range results {
			// A subject without a decimals entry is still an answer:
			// the ledger default precision is zero.
			d := 0
			if r.Decimals != nil {
				d = *r.Decimals
			}
			if err := c.assets.SetDecimals(ctx, r.Unit, d); err != nil {
				return fmt.Errorf("store decimals for %s: %w", r.Unit, err)
			}
			c.markResolved(r.Unit)
			resolved++
		}
	}

	if resolved == 0 {
		return nil
	}
	c.logger.Info("resolved asset metadata",
		zap.Int("resolved", resolved),
		zap.Int("awaiting", c.awaitingCount()))

	return c.reconvert(ctx)
}

// reconvert retries conversion for all buffered swaps, keeping the
// still-unresolved ones buffered. Swaps buffered concurrently during
// the re-conversion are preserved.
func (c *Converter) reconvert(ctx context.Context) error {
	c.mu.Lock()
	taken := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(taken) == 0 {
		return nil
	}

	prices, err := c.Convert(ctx, taken)
	if err != nil {
		// Put the batch back; Convert re-buffered nothing on error.
		c.mu.Lock()
		c.pending = append(taken, c.pending...)
		c.mu.Unlock()
		return fmt.Errorf("reconvert buffered swaps: %w", err)
	}

	if len(prices) > 0 && c.sink != nil {
		if err := c.sink(ctx, prices); err != nil {
			return fmt.Errorf("deliver recovered prices: %w", err)
		}
	}
	return nil
}

func (c *Converter) snapshotAwaiting() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	units := make([]string, 0, len(c.awaiting))
	for unit := range c.awaiting {
		units = append(units, unit)
	}
	return units
}

func (c *Converter) markResolved(unit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.awaiting, unit)
}

func (c *Converter) awaitingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.awaiting)
}
