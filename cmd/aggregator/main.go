package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/candles"
	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/chainsync"
	"cardano-dex-candles/internal/classifier"
	"cardano-dex-candles/internal/config"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/metadata"
	"cardano-dex-candles/internal/observability"
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
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	fromSlot := flag.Int64("from-slot", 0, "Start slot (0 = resume from the persisted sync point)")
	bootstrap := flag.Bool("bootstrap", false, "Historical replay mode: skip open-period recomputation")
	flag.Parse()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg, *useMemory, *fromSlot, *bootstrap || cfg.Bootstrapping)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("aggregator failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, useMemory bool, fromSlot int64, bootstrapping bool) error {
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

	registry, err := buildRegistry(cfg.EnabledDexes)
	if err != nil {
		return err
	}
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
		Bootstrapping: bootstrapping,
		Logger:        logger.Named("candles"),
	})
	if err != nil {
		return fmt.Errorf("create candle engine: %w", err)
	}
	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("seed candle engine: %w", err)
	}

	// The sink closes over the runner so drain-recovered prices flow
	// through the same persist path as live ones.
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
	go serveOps(cfg.MetricsAddr, logger)

	from := fromSlot
	if from == 0 {
		from = resumeSlot(ctx, candleStore, slots, logger)
	}

	return runner.Run(ctx, from)
}

// serveOps exposes health and Prometheus metrics endpoints.
func serveOps(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Info("ops endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ops endpoint failed", zap.Error(err))
	}
}

// resumeSlot derives the starting slot from the finest resolution's
// persisted sync point; a cold store starts at the Shelley boundary.
func resumeSlot(ctx context.Context, store storage.CandleStore, slots chain.SlotConverter, logger *zap.Logger) int64 {
	sync, err := store.SyncPoint(ctx, domain.Resolution15m)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Info("no sync point, starting from the Shelley boundary")
		return chain.MainnetShelleySlot
	}
	if err != nil {
		logger.Warn("sync point lookup failed, starting from the Shelley boundary", zap.Error(err))
		return chain.MainnetShelleySlot
	}
	slot := slots.ToSlot(sync)
	logger.Info("resuming from sync point",
		zap.Time("sync_point", sync),
		zap.Int64("slot", slot))
	return slot
}

// buildRegistry assembles the classifier registry, optionally filtered
// to the configured DEX codes.
func buildRegistry(enabled []string) (*classifier.Registry, error) {
	if len(enabled) == 0 {
		return classifier.DefaultRegistry(), nil
	}

	all := []classifier.DexClassifier{
		classifier.NewMinswap(),
		classifier.NewSundaeswap(),
		classifier.NewWingriders(),
		classifier.NewMuesliswap(),
	}
	byCode := make(map[string]classifier.DexClassifier, len(all))
	for _, c := range all {
		byCode[c.DexCode()] = c
	}

	var selected []classifier.DexClassifier
	for _, code := range enabled {
		c, ok := byCode[code]
		if !ok {
			return nil, fmt.Errorf("unknown dex code %q", code)
		}
		selected = append(selected, c)
	}
	return classifier.NewRegistry(selected...), nil
}
