package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lezek123/battleships-indexer/internal/chain"
	"github.com/Lezek123/battleships-indexer/internal/config"
	"github.com/Lezek123/battleships-indexer/internal/orchestrator"
	"github.com/Lezek123/battleships-indexer/internal/projection"
	"github.com/Lezek123/battleships-indexer/internal/reorg"
	"github.com/Lezek123/battleships-indexer/internal/store"
)

func main() {
	// Parse flags
	dryRun := flag.Bool("dry-run", false, "Only classify and count, don't write")
	statsOnly := flag.Bool("stats", false, "Only show current cache statistics")
	concurrency := flag.Int("concurrency", 0, "Number of concurrent rebuilds (default: 8)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load base configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	// Connect to PostgreSQL
	pool, err := store.Connect(ctx, cfg.PostgresURL, cfg.PostgresMaxConns)
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.InitSchema(ctx); err != nil {
		slog.Error("failed to init schema", "err", err)
		os.Exit(1)
	}

	// Stats only mode
	if *statsOnly {
		stats, err := st.Stats(ctx)
		if err != nil {
			slog.Error("failed to read stats", "err", err)
			os.Exit(1)
		}
		fmt.Printf("Cache Statistics:\n")
		fmt.Printf("  Events:      %d\n", stats.Events)
		fmt.Printf("  Projections: %d\n", stats.Projections)
		fmt.Printf("  Reveals:     %d\n", stats.Reveals)
		return
	}

	// Connect to the Ethereum node (historical queries only)
	source, err := chain.DialSource(ctx, chain.SourceConfig{
		RPCURL:   cfg.RPCURL,
		Contract: cfg.Contract(),
	})
	if err != nil {
		slog.Error("failed to dial node", "err", err)
		os.Exit(1)
	}
	defer source.Close()

	classifier, err := chain.NewClassifier(cfg.Contract())
	if err != nil {
		slog.Error("failed to create classifier", "err", err)
		os.Exit(1)
	}

	builder := projection.New(st, st, st)
	limit := cfg.RebuildConcurrency
	if *concurrency > 0 {
		limit = *concurrency
	}
	queue := orchestrator.NewRebuildQueue(limit, func(ctx context.Context, gameIndex uint64) error {
		_, err := builder.Rebuild(ctx, gameIndex)
		return err
	})
	reconciler := reorg.New(classifier, st, queue)

	orc := orchestrator.New(orchestrator.Config{
		DryRun: *dryRun,
	}, source, classifier, st, queue, reconciler)

	result, err := orc.Resync(ctx)
	if err != nil {
		slog.Error("resync failed", "err", err)
		os.Exit(1)
	}

	// Print summary
	fmt.Printf("\nResync Summary:\n")
	fmt.Printf("  Total Logs:  %d\n", result.TotalLogs)
	fmt.Printf("  Live Events: %d\n", result.LiveEvents)
	fmt.Printf("  New Events:  %d\n", result.NewEvents)
	fmt.Printf("  Live Games:  %d\n", result.LiveGames)
	fmt.Printf("  Duration:    %s\n", result.Duration)
	if *dryRun {
		fmt.Printf("  (dry run, nothing written)\n")
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
