package modelstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func sampleArtifact() Artifact {
	return Artifact{
		Actor:      json.RawMessage(`{"layers":[]}`),
		Critic:     json.RawMessage(`{"layers":[]}`),
		Epsilon:    0.42,
		TrainSteps: 17,
	}
}

func TestStores_LoadStatus(t *testing.T) {
	dir := t.TempDir()
	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "model", "trader.json")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "trader.db")),
		"memory": NewMemory(),
	}
	ctx := context.Background()

	for name, store := range stores {
		if res := store.Load(ctx); res.Status != NotFound {
			t.Fatalf("%s: expected NotFound on empty store, got %s (%v)", name, res.Status, res.Err)
		}
		if err := store.Save(ctx, sampleArtifact()); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		res := store.Load(ctx)
		if res.Status != Loaded {
			t.Fatalf("%s: expected Loaded, got %s (%v)", name, res.Status, res.Err)
		}
		if res.Artifact.Epsilon != 0.42 || res.Artifact.TrainSteps != 17 {
			t.Errorf("%s: unexpected artifact %+v", name, res.Artifact)
		}
		if res.Artifact.Version != ArtifactVersion {
			t.Errorf("%s: expected version %d, got %d", name, ArtifactVersion, res.Artifact.Version)
		}

		// Saving again replaces the previous artifact.
		next := sampleArtifact()
		next.TrainSteps = 18
		if err := store.Save(ctx, next); err != nil {
			t.Fatalf("%s: second save: %v", name, err)
		}
		if res := store.Load(ctx); res.Artifact.TrainSteps != 18 {
			t.Errorf("%s: expected overwritten artifact, got train steps %d", name, res.Artifact.TrainSteps)
		}
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := NewFileStore(path).Load(context.Background())
	if res.Status != Corrupt {
		t.Fatalf("expected Corrupt, got %s", res.Status)
	}
	if res.Err == nil {
		t.Error("expected a cause for corrupt artifact")
	}
}

func TestDecode_RejectsWrongVersionAndMissingNetworks(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"version", `{"version":99,"actor":{},"critic":{}}`},
		{"missing critic", `{"version":1,"actor":{}}`},
	}
	for _, tt := range tests {
		if res := decode([]byte(tt.data)); res.Status != Corrupt {
			t.Errorf("%s: expected Corrupt, got %s", tt.name, res.Status)
		}
	}
}

func TestOpen(t *testing.T) {
	if _, err := Open("s3", "x"); err == nil {
		t.Error("expected error for unknown backend")
	}
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
}
