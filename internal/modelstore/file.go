package modelstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore keeps the artifact in a single JSON file.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the artifact. A missing file is NotFound, an unreadable one is Corrupt.
func (s *FileStore) Load(_ context.Context) LoadResult {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{Status: NotFound}
		}
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("open model file: %w", err)}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return LoadResult{Status: Corrupt, Err: fmt.Errorf("read model file: %w", err)}
	}
	return decode(data)
}

// Save writes to a temp file in the same directory and renames it over the target.
func (s *FileStore) Save(_ context.Context, artifact Artifact) (err error) {
	data, err := encode(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}
