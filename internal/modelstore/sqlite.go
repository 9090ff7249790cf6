package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the latest artifact in a single-row table. The database
// is opened per call and closed before returning.
type SQLiteStore struct {
	Path string
}

// NewSQLiteStore creates a SQLiteStore for the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{Path: path}
}

const createModelTable = `CREATE TABLE IF NOT EXISTS model_artifacts (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	saved_at   INTEGER NOT NULL,
	artifact   BLOB NOT NULL
)`

func (s *SQLiteStore) withDB(ctx context.Context, fn func(*sql.DB) error) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createModelTable); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return fn(db)
}

// Load reads the stored artifact.
func (s *SQLiteStore) Load(ctx context.Context) LoadResult {
	var data []byte
	err := s.withDB(ctx, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT artifact FROM model_artifacts WHERE id = 1`).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return LoadResult{Status: NotFound}
	}
	if err != nil {
		return LoadResult{Status: Corrupt, Err: err}
	}
	return decode(data)
}

// Save replaces the stored artifact inside a transaction.
func (s *SQLiteStore) Save(ctx context.Context, artifact Artifact) error {
	data, err := encode(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return s.withDB(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_artifacts (id, saved_at, artifact) VALUES (1, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, artifact = excluded.artifact`,
			time.Now().Unix(), data,
		); err != nil {
			return fmt.Errorf("upsert artifact: %w", err)
		}
		return tx.Commit()
	})
}
