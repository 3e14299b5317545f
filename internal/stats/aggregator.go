// Package stats rolls the engine's event journal up into fixed time windows.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dexcore/internal/model"
	"dexcore/internal/storage"
	"dexcore/internal/units"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	Since         uint64
	BatchSize     int
	Token0        string
	Decimals0     uint8
	Decimals1     uint8
}

// Sink receives finished window metrics.
type Sink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Aggregator aggregates journal events into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	pending      []model.PoolWindowMetrics
	results      []model.PoolWindowMetrics
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates a JSONL event journal and returns every closed window in order. Events
// whose seq does not advance past the last one seen for their pool are dropped as
// duplicates.
func (a *Aggregator) Run(ctx context.Context, inputPath string) ([]model.PoolWindowMetrics, error) {
	if a.cfg.WindowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	a.results = nil

	var total, skipped, duplicates, failed int
	lastSeq := make(map[string]uint64)
	err := storage.ReadEvents(inputPath, func(event model.Event) error {
		total++
		// a retried journal flush can append events already written; seq is per pool
		// and strictly increasing in commit order
		key := strings.ToLower(event.Pool)
		if last, ok := lastSeq[key]; ok && event.Seq <= last {
			duplicates++
			return nil
		}
		lastSeq[key] = event.Seq
		if event.Timestamp < a.cfg.Since {
			skipped++
			return nil
		}
		if err := a.Add(ctx, event); err != nil {
			if !errors.Is(err, errInvalidEvent) {
				return err
			}
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.Uint64("seq", event.Seq), zap.String("kind", string(event.Kind)))
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	if err := a.Close(ctx); err != nil {
		return nil, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("skipped", skipped),
		zap.Int("duplicates", duplicates),
		zap.Int("windows", len(a.results)),
		zap.Int("failed", failed),
	)
	return a.results, nil
}

// Add folds one event into its pool's open window, closing the previous window when the
// event starts a new one.
func (a *Aggregator) Add(ctx context.Context, event model.Event) error {
	start := windowStart(event.Timestamp, a.cfg.WindowSeconds)
	key := strings.ToLower(event.Pool)
	acc := a.accumulators[key]
	if acc != nil && acc.WindowStart != start {
		if err := a.emit(ctx, acc); err != nil {
			return err
		}
		acc = nil
	}
	if acc == nil {
		acc = NewAccumulator(event, a.cfg.Token0, start, start+a.cfg.WindowSeconds)
		a.accumulators[key] = acc
	}
	return acc.AddEvent(event)
}

// Close flushes every open window and any buffered metrics.
func (a *Aggregator) Close(ctx context.Context) error {
	for key, acc := range a.accumulators {
		if err := a.emit(ctx, acc); err != nil {
			return err
		}
		delete(a.accumulators, key)
	}
	return a.flush(ctx)
}

func (a *Aggregator) emit(ctx context.Context, acc *Accumulator) error {
	metrics := a.metrics(acc)
	a.results = append(a.results, metrics)
	a.pending = append(a.pending, metrics)
	if len(a.pending) >= a.cfg.BatchSize {
		return a.flush(ctx)
	}
	return nil
}

func (a *Aggregator) flush(ctx context.Context) error {
	if a.sink == nil || len(a.pending) == 0 {
		a.pending = a.pending[:0]
		return nil
	}
	if err := a.sink.UpsertWindowMetrics(ctx, a.pending); err != nil {
		return fmt.Errorf("upsert window metrics: %w", err)
	}
	a.pending = a.pending[:0]
	return nil
}

func (a *Aggregator) metrics(acc *Accumulator) model.PoolWindowMetrics {
	feeRate0, feeRate1 := computeFeeRates(acc.Fee0, acc.Fee1, acc.Reserve0, acc.Reserve1)
	return model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		AddCount:       acc.AddCount,
		RemoveCount:    acc.RemoveCount,
		Volume0:        units.FormatBig(acc.Volume0, a.cfg.Decimals0),
		Volume1:        units.FormatBig(acc.Volume1, a.cfg.Decimals1),
		Fee0:           units.FormatBig(acc.Fee0, a.cfg.Decimals0),
		Fee1:           units.FormatBig(acc.Fee1, a.cfg.Decimals1),
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
		Reserve0:       units.FormatBig(acc.Reserve0, a.cfg.Decimals0),
		Reserve1:       units.FormatBig(acc.Reserve1, a.cfg.Decimals1),
		TotalSupply:    acc.TotalSupply.String(),
		APR:            computeAPR(feeRate0, feeRate1, a.cfg.WindowSeconds),
		LastSeq:        acc.LastSeq,
	}
}
