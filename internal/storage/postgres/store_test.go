package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"engine_events", "pool_window_metrics", "engine_state"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema missing table %s", table)
		}
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Fatalf("expected nil for empty value")
	}
	if got := nullable("42"); got == nil || *got != "42" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
