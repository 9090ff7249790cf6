package modelstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(_ context.Context) LoadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return LoadResult{Status: NotFound}
	}
	return decode(m.data)
}

func (m *Memory) Save(_ context.Context, artifact Artifact) error {
	data, err := encode(artifact)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// SetRaw replaces the stored bytes, bypassing encoding.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}
