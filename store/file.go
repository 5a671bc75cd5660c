package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"roomrelay/core/logger"

	"log/slog"
)

// Store abstracts snapshot persistence so the relay service can be
// exercised against an in-memory implementation in tests.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// FileStore persists the snapshot as a single JSON document. Saves go
// through a temp file in the same directory followed by rename, so a
// crash mid-write never leaves a truncated snapshot behind.
type FileStore struct {
	path string
}

// NewFileStore creates a store bound to the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decodes the snapshot. A missing file yields an empty
// snapshot; a file that exists but fails to decode is a hard error,
// callers are expected to refuse startup rather than overwrite it.
func (f *FileStore) Load() (Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug(logger.Background(), "store", "load.empty",
				slog.String("path", f.path),
			)
			return NewSnapshot(), nil
		}
		return Snapshot{}, fmt.Errorf("store: read %s: %w", f.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	snap.normalize()

	logger.Debug(logger.Background(), "store", "load.done",
		slog.String("path", f.path),
		slog.Int("count", len(snap.Correlation)),
	)
	return snap, nil
}

// Save encodes the snapshot and atomically replaces the backing file.
func (f *FileStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".relay_state-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}

	logger.Debug(logger.Background(), "store", "save.done",
		slog.String("path", f.path),
		slog.Int("count", len(snap.Correlation)),
	)
	return nil
}
