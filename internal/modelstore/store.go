package modelstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ArtifactVersion is bumped whenever the artifact layout changes.
const ArtifactVersion = 1

// Status is the outcome of a Load.
type Status int

const (
	NotFound Status = iota
	Loaded
	Corrupt
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Corrupt:
		return "corrupt"
	default:
		return "not_found"
	}
}

// Artifact is the persisted form of the agent's learned parameters.
type Artifact struct {
	Version    int             `json:"version"`
	Actor      json.RawMessage `json:"actor"`
	Critic     json.RawMessage `json:"critic"`
	Epsilon    float64         `json:"epsilon"`
	TrainSteps int             `json:"train_steps"`
	SavedAt    time.Time       `json:"saved_at"`
}

// LoadResult carries the artifact when Status is Loaded and the cause when Corrupt.
type LoadResult struct {
	Status   Status
	Artifact Artifact
	Err      error
}

// Store persists and restores artifacts.
type Store interface {
	Load(ctx context.Context) LoadResult
	Save(ctx context.Context, artifact Artifact) error
}

func decode(data []byte) LoadResult {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("decode artifact: %w", err)}
	}
	if a.Version != ArtifactVersion {
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("artifact version %d, want %d", a.Version, ArtifactVersion)}
	}
	if len(a.Actor) == 0 || len(a.Critic) == 0 {
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("artifact is missing network parameters")}
	}
	return LoadResult{Status: Loaded, Artifact: a}
}

func encode(a Artifact) ([]byte, error) {
	a.Version = ArtifactVersion
	if a.SavedAt.IsZero() {
		a.SavedAt = time.Now()
	}
	return json.MarshalIndent(a, "", "  ")
}

// Open returns the backend named by kind ("file" or "sqlite").
func Open(kind, path string) (Store, error) {
	switch kind {
	case "file", "":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unknown model store: %s", kind)
	}
}
