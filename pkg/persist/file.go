// ABOUTME: File-backed document store
// ABOUTME: Atomic replace via temp file, fsync and rename

package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the document in a single file
type FileStore struct {
	Path string
}

// NewFileStore creates a store for the given file path
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Read returns the file contents or ErrNotExist
func (s *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Write replaces the file atomically. The context is checked between steps;
// once the rename has happened the write counts as done.
func (s *FileStore) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.Path)
	base := filepath.Base(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before rename: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

// Close is a no-op for files
func (s *FileStore) Close() error {
	return nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
