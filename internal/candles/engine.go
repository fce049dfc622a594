package candles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/observability"
	"cardano-dex-candles/internal/storage"
)

// Engine maintains the per-resolution trigger state and turns incoming
// price batches into persisted candles. The finest resolution is built
// directly from prices; coarser resolutions are rolled up from the next
// finer candles already in the store.
type Engine struct {
	candles storage.CandleStore
	prices  storage.PriceStore
	slots   chain.SlotConverter
	logger  *zap.Logger

	mu            sync.Mutex
	bootstrapping bool
	state         map[domain.Resolution]time.Time
	buffer        []domain.Price
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Candles storage.CandleStore
	// Prices receives outlier-flagged price rows on finalisation.
	// Optional.
	Prices storage.PriceStore
	Slots  chain.SlotConverter
	// Bootstrapping suppresses warm-start and open-period recomputation
	// during historical replay.
	Bootstrapping bool
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Candles == nil {
		return nil, fmt.Errorf("candle store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		candles:       opts.Candles,
		prices:        opts.Prices,
		slots:         opts.Slots,
		logger:        logger,
		bootstrapping: opts.Bootstrapping,
		state:         make(map[domain.Resolution]time.Time),
	}, nil
}

// Init seeds the trigger state from the store's sync points so a
// restart resumes where the last finalised period left off.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, res := range domain.Resolutions() {
		sync, err := e.candles.SyncPoint(ctx, res)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load sync point for %s: %w", res, err)
		}
		// The period after the sync point is the first one not yet
		// finalised for every symbol.
		e.state[res] = sync.Add(res.Duration())
	}
	return nil
}

// SetBootstrapping switches historical-replay mode. Turn it off when
// the block source catches up to the chain tip.
func (e *Engine) SetBootstrapping(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bootstrapping = on
}

// Buffer adds late-arriving prices (metadata drain recoveries) to the
// working set without advancing the trigger state. They take effect on
// the next block pass; a recovery whose period has already closed
// re-finalises that period rather than joining the open one.
func (e *Engine) Buffer(prices []domain.Price) {
	if len(prices) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffer = append(e.buffer, prices...)
}

// ProcessBlock runs one trigger pass for a block's prices. The prices
// slice may be empty; boundary crossings still finalise and gap-fill.
// Storage errors abort the pass and must stop the ingestion batch.
func (e *Engine) ProcessBlock(ctx context.Context, slot int64, prices []domain.Price) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.slots.ToTime(slot)
	e.buffer = append(e.buffer, prices...)

	if err := e.refinalise(ctx); err != nil {
		return err
	}

	for _, res := range domain.Resolutions() {
		current := res.Floor(t)
		previous, seen := e.state[res]
		if !seen {
			previous = current
			e.state[res] = current
		}

		var buffered []domain.Price
		if res == domain.Resolution15m {
			buffered = e.buffer
		}

		for _, tr := range DetermineTriggers(res, e.bootstrapping, previous, current, buffered, prices) {
			if err := e.apply(ctx, res, tr); err != nil {
				return fmt.Errorf("%s %s at %s: %w", res, tr.Type, tr.Period.Format(time.RFC3339), err)
			}
		}

		if !current.Equal(previous) {
			e.state[res] = current
		}
	}

	e.pruneBuffer(domain.Resolution15m.Floor(t))
	return nil
}

// refinalise recomputes closed periods that a late-recovered price
// belongs to, and removes those prices from the working buffer so they
// never fold into the open period. The ingestion path persists every
// price before the engine sees it, so the price store holds the closed
// period in full and the rebuild is complete.
func (e *Engine) refinalise(ctx context.Context) error {
	open, seen := e.state[domain.Resolution15m]
	if !seen {
		return nil
	}

	type closedPeriod struct {
		symbol string
		period time.Time
	}
	stale := make(map[closedPeriod]struct{})
	kept := e.buffer[:0]
	for _, p := range e.buffer {
		if p.Time.Before(open) {
			stale[closedPeriod{p.AssetUnit, domain.Resolution15m.Floor(p.Time)}] = struct{}{}
			continue
		}
		kept = append(kept, p)
	}
	e.buffer = kept

	if len(stale) == 0 {
		return nil
	}
	if e.prices == nil {
		e.logger.Warn("dropping late prices for closed periods, no price store to rebuild from",
			zap.Int("periods", len(stale)))
		return nil
	}

	for cp := range stale {
		if err := e.refinalisePeriod(ctx, cp.symbol, cp.period); err != nil {
			return fmt.Errorf("refinalise %s at %s: %w", cp.symbol, cp.period.Format(time.RFC3339), err)
		}
	}
	return nil
}

// refinalisePeriod rebuilds one symbol's closed finest-resolution candle
// from the price store, then refreshes any coarser candle already
// finalised over it. Coarser periods still open are left to the regular
// roll-up on their own finalise.
func (e *Engine) refinalisePeriod(ctx context.Context, symbol string, period time.Time) error {
	res := domain.Resolution15m
	// The range query is inclusive; slot times have second granularity.
	end := period.Add(res.Duration() - time.Second)
	rows, err := e.prices.GetByAssetTimeRange(ctx, symbol, period, end)
	if err != nil {
		return fmt.Errorf("load period prices: %w", err)
	}
	prices := make([]domain.Price, len(rows))
	for i, r := range rows {
		prices[i] = *r
	}

	prev, err := e.previousCandle(ctx, symbol, res, period)
	if err != nil {
		return err
	}
	c, outliers := buildFromPrices(symbol, res, period, prices, prev)
	if c == nil {
		return nil
	}
	if len(outliers) > 0 {
		flagged := make([]*domain.Price, len(outliers))
		for i := range outliers {
			flagged[i] = &outliers[i]
		}
		if err := e.prices.InsertBulk(ctx, flagged); err != nil {
			return fmt.Errorf("flag outlier prices: %w", err)
		}
	}
	if err := e.upsert(ctx, []*domain.Candle{c}); err != nil {
		return err
	}

	for _, coarse := range domain.Resolutions()[1:] {
		boundary, ok := e.state[coarse]
		if !ok {
			continue
		}
		start := coarse.Floor(period)
		if !start.Before(boundary) {
			continue
		}
		if err := e.applyRollup(ctx, coarse, Trigger{Type: TriggerFinalise, Period: start}); err != nil {
			return err
		}
	}
	return nil
}

// pruneBuffer drops prices belonging to periods already finalised.
func (e *Engine) pruneBuffer(cutoff time.Time) {
	kept := e.buffer[:0]
	for _, p := range e.buffer {
		if !p.Time.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	e.buffer = kept
}

func (e *Engine) apply(ctx context.Context, res domain.Resolution, tr Trigger) error {
	var err error
	if res == domain.Resolution15m {
		err = e.applyPrices(ctx, res, tr)
	} else {
		err = e.applyRollup(ctx, res, tr)
	}
	if err != nil {
		return err
	}
	if tr.Type == TriggerFinalise {
		return e.fillContinuations(ctx, res, tr.Period)
	}
	return nil
}

// applyPrices builds the finest-resolution candles for a period
// directly from price points.
func (e *Engine) applyPrices(ctx context.Context, res domain.Resolution, tr Trigger) error {
	bySymbol := make(map[string][]domain.Price)
	for _, p := range tr.Prices {
		bySymbol[p.AssetUnit] = append(bySymbol[p.AssetUnit], p)
	}

	var out []*domain.Candle
	var flagged []*domain.Price
	for symbol, prices := range bySymbol {
		prev, err := e.previousCandle(ctx, symbol, res, tr.Period)
		if err != nil {
			return err
		}
		c, outliers := buildFromPrices(symbol, res, tr.Period, prices, prev)
		if c != nil {
			out = append(out, c)
		}
		for i := range outliers {
			flagged = append(flagged, &outliers[i])
		}
	}

	if len(flagged) > 0 && e.prices != nil {
		if err := e.prices.InsertBulk(ctx, flagged); err != nil {
			return fmt.Errorf("flag outlier prices: %w", err)
		}
	}
	return e.upsert(ctx, out)
}

// applyRollup builds a coarser candle set for a period from the next
// finer candles in the store.
func (e *Engine) applyRollup(ctx context.Context, res domain.Resolution, tr Trigger) error {
	finer := res.Finer()
	end := tr.Period.Add(res.Duration() - finer.Duration())
	subs, err := e.candles.GetByTimeRange(ctx, finer, tr.Period, end)
	if err != nil {
		return fmt.Errorf("load %s sub-candles: %w", finer, err)
	}

	bySymbol := make(map[string][]*domain.Candle)
	for _, s := range subs {
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}

	var out []*domain.Candle
	for symbol, group := range bySymbol {
		prev, err := e.previousCandle(ctx, symbol, res, tr.Period)
		if err != nil {
			return err
		}
		if c := buildFromSubCandles(symbol, res, tr.Period, group, prev); c != nil {
			out = append(out, c)
		}
	}
	return e.upsert(ctx, out)
}

// fillContinuations writes zero-volume gap candles at a finalised
// period for every tracked symbol that traded before but not within it.
// Idempotent: symbols that already have a candle there are skipped.
func (e *Engine) fillContinuations(ctx context.Context, res domain.Resolution, period time.Time) error {
	existing, err := e.candles.GetByTimeRange(ctx, res, period, period)
	if err != nil {
		return fmt.Errorf("load existing candles: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		have[c.Symbol] = struct{}{}
	}

	latest, err := e.candles.LatestPerSymbol(ctx, res, period)
	if err != nil {
		return fmt.Errorf("load latest candles: %w", err)
	}

	var fills []*domain.Candle
	for symbol, prev := range latest {
		if _, ok := have[symbol]; ok {
			continue
		}
		fills = append(fills, &domain.Candle{
			Symbol:     symbol,
			Time:       period,
			Resolution: res,
			Open:       prev.Close,
			High:       prev.Close,
			Low:        prev.Close,
			Close:      prev.Close,
			Volume:     0,
		})
	}

	if len(fills) > 0 {
		e.logger.Debug("filled continuation candles",
			zap.String("resolution", string(res)),
			zap.Time("period", period),
			zap.Int("count", len(fills)))
	}
	return e.upsert(ctx, fills)
}

func (e *Engine) previousCandle(ctx context.Context, symbol string, res domain.Resolution, period time.Time) (*domain.Candle, error) {
	prev, err := e.candles.GetAt(ctx, symbol, res, res.Previous(period))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load previous candle for %s: %w", symbol, err)
	}
	return prev, nil
}

func (e *Engine) upsert(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	if err := e.candles.UpsertBulk(ctx, candles); err != nil {
		return fmt.Errorf("upsert candles: %w", err)
	}
	observability.RecordCandlesWritten(string(candles[0].Resolution), len(candles))
	return nil
}
