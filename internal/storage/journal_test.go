package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dexcore/internal/model"
)

type failingSink struct {
	calls  int
	failAt int
}

func (s *failingSink) PutEventBatch(_ context.Context, events []model.Event) error {
	s.calls++
	if s.calls == s.failAt {
		return errors.New("sink down")
	}
	return nil
}

func TestJournalFlushesToJsonl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	journal := NewJournal(NewJsonlStorage(path), 2, nil)
	for i := 1; i <= 5; i++ {
		journal.Record(model.Event{Seq: uint64(i), Kind: model.EventSwap, AmountIn: "10"})
	}
	if err := journal.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if journal.Pending() != 0 {
		t.Fatalf("pending after flush: %d", journal.Pending())
	}
	journal.Record(model.Event{Seq: 6, Kind: model.EventDeposit})
	if err := journal.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}

	var seqs []uint64
	err := ReadEvents(path, func(event model.Event) error {
		seqs = append(seqs, event.Seq)
		return nil
	})
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(seqs) != 6 {
		t.Fatalf("expected 6 events, got %d", len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, seq)
		}
	}
}

func TestJournalKeepsUnwrittenEvents(t *testing.T) {
	sink := &failingSink{failAt: 2}
	journal := NewJournal(sink, 2, nil)
	for i := 1; i <= 5; i++ {
		journal.Record(model.Event{Seq: uint64(i)})
	}
	if err := journal.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush error")
	}
	if journal.Pending() != 3 {
		t.Fatalf("expected 3 pending events, got %d", journal.Pending())
	}
	if err := journal.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if journal.Pending() != 0 {
		t.Fatalf("pending after retry: %d", journal.Pending())
	}
}

func TestMultiStopsAtFirstError(t *testing.T) {
	first := &failingSink{failAt: 1}
	second := &failingSink{}
	err := Multi(first, nil, second).PutEventBatch(context.Background(), []model.Event{{Seq: 1}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if second.calls != 0 {
		t.Fatalf("second sink called after failure")
	}
}
