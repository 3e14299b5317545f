// Package state persists the simulated world between CLI runs: the engine snapshot and
// the token ledgers it settles against.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dexcore/internal/model"
	"dexcore/internal/storage/postgres"
)

// Store loads and saves the world state.
type Store interface {
	Load(ctx context.Context) (model.WorldState, bool, error)
	Save(ctx context.Context, world model.WorldState) error
}

// FileStore stores the world in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) (model.WorldState, bool, error) {
	if s == nil || s.Path == "" {
		return model.WorldState{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WorldState{}, false, nil
		}
		return model.WorldState{}, false, fmt.Errorf("read state: %w", err)
	}
	var world model.WorldState
	if err := json.Unmarshal(data, &world); err != nil {
		return model.WorldState{}, false, fmt.Errorf("parse state: %w", err)
	}
	return world, true, nil
}

func (s *FileStore) Save(ctx context.Context, world model.WorldState) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	world.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(world, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// DBStore stores the world as a JSON document in the engine_state table.
type DBStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (model.WorldState, bool, error) {
	if s == nil || s.Store == nil {
		return model.WorldState{}, false, nil
	}
	payload, ok, err := s.Store.LoadState(ctx, s.Name)
	if err != nil || !ok {
		return model.WorldState{}, ok, err
	}
	var world model.WorldState
	if err := json.Unmarshal(payload, &world); err != nil {
		return model.WorldState{}, false, fmt.Errorf("parse state %s: %w", s.Name, err)
	}
	return world, true, nil
}

func (s *DBStore) Save(ctx context.Context, world model.WorldState) error {
	if s == nil || s.Store == nil {
		return nil
	}
	world.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.Store.SaveState(ctx, s.Name, payload)
}
