package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"dexcore/internal/model"
)

// Journal buffers committed engine events and flushes them to a sink in batches.
type Journal struct {
	sink      Storage
	batchSize int
	logger    *zap.Logger

	mu      sync.Mutex
	pending []model.Event
}

func NewJournal(sink Storage, batchSize int, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Journal{sink: sink, batchSize: batchSize, logger: logger}
}

// Record queues one event. It never blocks on I/O.
func (j *Journal) Record(event model.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(j.pending, event)
}

func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Flush writes queued events to the sink in batches. Events from a failed batch onward stay
// queued for the next flush. With a Multi sink a failed batch may already have reached the
// sinks before the failing one, so a retry can write those events twice: Postgres ignores
// them by (pool, seq) and stats readers drop them by seq, but the JSONL file keeps both
// copies.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sink == nil {
		j.pending = nil
		return nil
	}
	written := 0
	for written < len(j.pending) {
		end := written + j.batchSize
		if end > len(j.pending) {
			end = len(j.pending)
		}
		if err := j.sink.PutEventBatch(ctx, j.pending[written:end]); err != nil {
			j.pending = append([]model.Event(nil), j.pending[written:]...)
			return err
		}
		written = end
	}
	if written > 0 {
		j.logger.Debug("journal flushed", zap.Int("events", written))
	}
	j.pending = nil
	return nil
}
