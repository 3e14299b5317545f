package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexcore/internal/config"
	"dexcore/internal/stats"
	"dexcore/internal/storage/postgres"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the event journal into per-window pool metrics",
		RunE:  runStats,
	}
	cmd.Flags().String("in", "", "input JSONL event journal (defaults to --events-out)")
	cmd.Flags().String("window", "1h", "window size (e.g. 5m, 1h)")
	cmd.Flags().String("since", "", "skip events before this time (unix seconds or RFC3339)")
	cmd.Flags().Int("batch-size", 1000, "metrics rows per Postgres batch")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	input := cfg.Input
	if input == "" {
		input = cfg.EventsOut
	}
	if input == "" {
		return fmt.Errorf("input path is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}
	since, err := config.ParseTimestamp(cfg.Since)
	if err != nil {
		return fmt.Errorf("parse since: %w", err)
	}
	token0, err := config.ParseAddress("token0", cfg.Token0.Address)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink stats.Sink
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
	}

	logger.Info("stats start",
		zap.String("input", input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("since", since),
	)

	agg := stats.NewAggregator(stats.Config{
		WindowSeconds: windowSeconds,
		Since:         since,
		BatchSize:     cfg.BatchSize,
		Token0:        token0.Hex(),
		Decimals0:     cfg.Token0.Decimals,
		Decimals1:     cfg.Token1.Decimals,
	}, sink, logger)

	windows, err := agg.Run(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), windows)
}
