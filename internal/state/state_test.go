package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dexcore/internal/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &FileStore{Path: filepath.Join(t.TempDir(), "nested", "world.json")}

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}

	world := model.WorldState{
		Engine: model.Snapshot{Reserve0: "10", Reserve1: "20", TotalSupply: "14", Seq: 3},
		Tokens: []model.TokenLedgerState{{
			Meta:        model.TokenMeta{Symbol: "TK0", Decimals: 18},
			TotalSupply: "100",
			Balances:    []model.AccountAmount{{Account: "0x01", Amount: "100"}},
		}},
	}
	if err := store.Save(ctx, world); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(store.Path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Engine.Seq != 3 || got.Engine.Reserve1 != "20" || len(got.Tokens) != 1 || got.Tokens[0].Balances[0].Amount != "100" {
		t.Fatalf("unexpected world: %+v", got)
	}
	if got.UpdatedAt == "" {
		t.Fatalf("expected updated_at to be set")
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := (&FileStore{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNilStoresAreNoops(t *testing.T) {
	ctx := context.Background()
	var file *FileStore
	if err := file.Save(ctx, model.WorldState{}); err != nil {
		t.Fatalf("nil file save: %v", err)
	}
	var db *DBStore
	if _, ok, err := db.Load(ctx); ok || err != nil {
		t.Fatalf("nil db load: ok=%v err=%v", ok, err)
	}
}
