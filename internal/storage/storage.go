package storage

import (
	"context"

	"dexcore/internal/model"
)

// Storage defines a sink for committed engine events.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.Event) error
}

// Multi fans a batch out to every sink in order, stopping at the first error.
func Multi(sinks ...Storage) Storage {
	return multiStorage(sinks)
}

type multiStorage []Storage

func (m multiStorage) PutEventBatch(ctx context.Context, events []model.Event) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
