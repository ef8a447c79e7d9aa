package datastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type (
	DiskDataStore struct {
		rootPath string
	}
)

func NewDiskDataStore(rootPath string) (*DiskDataStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	dds := &DiskDataStore{
		rootPath: rootPath,
	}

	return dds, nil
}

func (dds *DiskDataStore) path(key string) (string, error) {
	p := filepath.Join(dds.rootPath, filepath.FromSlash(key))
	rel, err := filepath.Rel(dds.rootPath, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrKeyOutsideRoot, key)
	}
	return p, nil
}

// WriteFile writes to a temp file first and renames it into place, so a
// reader never observes a partially written file.
func (dds *DiskDataStore) WriteFile(_ context.Context, key string, b []byte) error {
	p, err := dds.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("error in os.WriteFile: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("error in os.Rename: %w", err)
	}
	return nil
}

func (dds *DiskDataStore) ReadFile(_ context.Context, key string) ([]byte, error) {
	p, err := dds.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("error in os.ReadFile: %w", err)
	}
	return b, nil
}

func (dds *DiskDataStore) Shutdown(context.Context) error {
	return nil
}
