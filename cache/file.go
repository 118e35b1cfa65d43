package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage keeps one file per key inside a directory.
// Writes go to a temporary file that is synced and renamed over the target,
// so a concurrent reader sees either the old blob or the new one.
type FileStorage struct {
	dir string
}

// NewFileStorage creates the directory if needed and returns a storage rooted at it.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("file storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file storage: creating directory: %w", err)
	}
	return &FileStorage{dir: filepath.Clean(dir)}, nil
}

// Dir returns the storage directory.
func (f *FileStorage) Dir() string {
	return f.dir
}

// path maps a key to a file name. Keys contain '/' and '@', so they are encoded.
func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

// Get reads the file for key.
func (f *FileStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file storage: reading: %w", err)
	}
	return data, true, nil
}

// Set atomically replaces the file for key.
func (f *FileStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".golokal-*.tmp")
	if err != nil {
		return fmt.Errorf("file storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file storage: writing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file storage: syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file storage: closing: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("file storage: renaming: %w", err)
	}
	return nil
}

// Remove deletes the file for key.
func (f *FileStorage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file storage: removing: %w", err)
	}
	return nil
}

// Verify FileStorage implements Storage
var _ Storage = (*FileStorage)(nil)
