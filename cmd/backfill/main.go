// Command backfill replays a historical slot range through the full
// pipeline with open-period recomputation suppressed. Safe to re-run:
// every write along the path is idempotent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/candles"
	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/chainsync"
	"cardano-dex-candles/internal/classifier"
	"cardano-dex-candles/internal/config"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/metadata"
	"cardano-dex-candles/internal/pipeline"
	"cardano-dex-candles/internal/pricing"
	"cardano-dex-candles/internal/qualifier"
	"cardano-dex-candles/internal/retry"
	"cardano-dex-candles/internal/storage"
	chstore "cardano-dex-candles/internal/storage/clickhouse"
	"cardano-dex-candles/internal/storage/memory"
	"cardano-dex-candles/internal/storage/migrations"
	pgstore "cardano-dex-candles/internal/storage/postgres"
)

func main() {
	fromSlot := flag.Int64("from-slot", 0, "First slot to replay (required)")
	toSlot := flag.Int64("to-slot", 0, "Last slot to replay, inclusive (required)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *fromSlot <= 0 || *toSlot < *fromSlot {
		logger.Fatal("both --from-slot and --to-slot are required, with to >= from")
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, logger, cfg, *useMemory, *fromSlot, *toSlot); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("backfill failed", zap.Error(err))
	}
	logger.Info("backfill complete",
		zap.Int64("from_slot", *fromSlot),
		zap.Int64("to_slot", *toSlot))
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, useMemory bool, fromSlot, toSlot int64) error {
	var (
		assetStore  storage.AssetStore
		priceStore  storage.PriceStore
		candleStore storage.CandleStore
	)

	if useMemory {
		assetStore = memory.NewAssetStore()
		priceStore = memory.NewPriceStore()
		candleStore = memory.NewCandleStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}

		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer chConn.Close()

		assetStore = pgstore.NewAssetStore(pool)
		priceStore = chstore.NewPriceStore(chConn)
		candleStore = &storage.MirroredCandleStore{
			Primary: pgstore.NewCandleStore(pool),
			History: chstore.NewCandleHistoryStore(chConn),
		}
	}

	registry := classifier.DefaultRegistry()
	slots := chain.MainnetSlotConverter()

	ws, err := chainsync.NewClient(ctx, cfg.NodeWSURL, nil, logger.Named("chainsync"))
	if err != nil {
		return fmt.Errorf("connect node gateway: %w", err)
	}
	defer ws.Close()

	qual, err := qualifier.New(qualifier.Options{
		Pools:    registry.PoolCredentials(),
		Resolver: ws,
		Logger:   logger.Named("qualifier"),
	})
	if err != nil {
		return fmt.Errorf("create qualifier: %w", err)
	}

	engine, err := candles.NewEngine(candles.EngineOptions{
		Candles:       candleStore,
		Prices:        priceStore,
		Slots:         slots,
		Bootstrapping: true,
		Logger:        logger.Named("candles"),
	})
	if err != nil {
		return fmt.Errorf("create candle engine: %w", err)
	}
	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("seed candle engine: %w", err)
	}

	var runner *pipeline.Runner
	converter, err := pricing.New(pricing.Options{
		Assets:        assetStore,
		Service:       metadata.NewHTTPClient(cfg.MetadataURL),
		Slots:         slots,
		Provider:      cfg.PricingProvider,
		Retrier:       retry.New(retry.WithMaxAttempts(cfg.MetadataMaxAttempts)),
		DrainInterval: cfg.MetadataInterval,
		BatchSize:     cfg.MetadataBatchSize,
		Sink: func(ctx context.Context, prices []domain.Price) error {
			return runner.Persist(ctx, prices)
		},
		Logger: logger.Named("pricing"),
	})
	if err != nil {
		return fmt.Errorf("create price converter: %w", err)
	}

	runner, err = pipeline.New(pipeline.Options{
		Source:    ws,
		Qualifier: qual,
		Registry:  registry,
		Converter: converter,
		Engine:    engine,
		Prices:    priceStore,
		Logger:    logger.Named("pipeline"),
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	go converter.Run(ctx)

	blocks, err := ws.Blocks(ctx, fromSlot)
	if err != nil {
		return fmt.Errorf("subscribe blocks: %w", err)
	}

	processed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				return nil
			}
			if block.Slot > toSlot {
				// One last drain so swaps whose metadata resolved late
				// still make it into the persisted price stream.
				if err := converter.Drain(ctx); err != nil {
					logger.Warn("final metadata drain failed", zap.Error(err))
				}
				logger.Info("reached end of range", zap.Int("blocks", processed))
				return nil
			}
			if err := runner.ProcessBlock(ctx, block); err != nil {
				return fmt.Errorf("block %d: %w", block.Slot, err)
			}
			processed++
		}
	}
}
