package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Lezek123/battleships-indexer/internal/api"
	"github.com/Lezek123/battleships-indexer/internal/api/handler"
	"github.com/Lezek123/battleships-indexer/internal/chain"
	"github.com/Lezek123/battleships-indexer/internal/config"
	"github.com/Lezek123/battleships-indexer/internal/notify"
	"github.com/Lezek123/battleships-indexer/internal/orchestrator"
	"github.com/Lezek123/battleships-indexer/internal/projection"
	"github.com/Lezek123/battleships-indexer/internal/reorg"
	"github.com/Lezek123/battleships-indexer/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	if err := cfg.ValidateStreaming(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("starting battleships-indexer",
		"contract", cfg.ContractAddress,
		"confirmation_depth", cfg.ConfirmationDepth,
		"resync_interval", cfg.ResyncInterval,
	)

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

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to the Ethereum node
	source, err := chain.DialSource(ctx, chain.SourceConfig{
		RPCURL:   cfg.RPCURL,
		WSURL:    cfg.WSURL,
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

	// Create publisher
	pub, err := notify.New(redisClient, cfg.UpdatesTopic)
	if err != nil {
		slog.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	// Wire the rebuild pipeline
	builder := projection.New(st, st, st)
	queue := orchestrator.NewRebuildQueue(cfg.RebuildConcurrency, func(ctx context.Context, gameIndex uint64) error {
		proj, err := builder.Rebuild(ctx, gameIndex)
		if err != nil {
			return err
		}
		if err := pub.PublishGameUpdate(ctx, gameIndex, proj); err != nil {
			slog.Warn("game update not published", "game_index", gameIndex, "err", err)
		}
		return nil
	})
	reconciler := reorg.New(classifier, st, queue)

	orc := orchestrator.New(orchestrator.Config{
		ConfirmationDepth: cfg.ConfirmationDepth,
		ResyncInterval:    cfg.ResyncInterval,
		RetryDelay:        cfg.SubscribeRetryDelay,
		MaxRetries:        cfg.SubscribeMaxRetries,
	}, source, classifier, st, queue, reconciler)

	// API server and live update stream
	hub := handler.NewHub()
	defer hub.Close()

	apiServer := api.NewServer(st, hub, cfg.HTTPAddr)
	stream, err := api.NewStream(api.StreamConfig{
		RedisClient:   redisClient,
		Topic:         cfg.UpdatesTopic,
		ConsumerGroup: cfg.ConsumerGroup,
		Hub:           hub,
	})
	if err != nil {
		slog.Error("failed to create update stream", "err", err)
		os.Exit(1)
	}
	defer stream.Close()

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orc.Run(ctx)
	})
	g.Go(func() error {
		return apiServer.Run(ctx)
	})
	g.Go(func() error {
		return stream.Run(ctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("indexer error", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
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
