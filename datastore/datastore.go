package datastore

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("file not found")
	ErrKeyOutsideRoot = errors.New("key resolves outside the warehouse root")
)

type (
	// DataStore holds the immutable data files of every table, addressed by
	// their key relative to the warehouse root.
	DataStore interface {
		// WriteFile stores b under key, replacing anything already there
		WriteFile(ctx context.Context, key string, b []byte) error
		// ReadFile returns the whole file, or ErrNotFound
		ReadFile(ctx context.Context, key string) ([]byte, error)

		Shutdown(ctx context.Context) error
	}
)
