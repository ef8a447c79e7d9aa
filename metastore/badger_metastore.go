package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

type (
	// BadgerMetaStore keeps table and file records in an embedded badger db.
	BadgerMetaStore struct {
		db *badger.DB
	}
)

// NewBadgerMetaStore opens (or creates) the db in dir. An empty dir keeps
// everything in memory.
func NewBadgerMetaStore(dir string) (*BadgerMetaStore, error) {
	options := badger.DefaultOptions(dir)
	if dir == "" {
		options = options.WithInMemory(true)
	}
	options.Logger = nil
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("error in badger.Open: %w", err)
	}
	return &BadgerMetaStore{db: db}, nil
}

func tableKey(table string) []byte {
	return []byte("t/" + table)
}

// filePrefix ends in a NUL so one table's prefix never matches another
// table whose name extends it.
func filePrefix(table string) []byte {
	return []byte("f/" + table + "\x00")
}

func fileKey(table, id string) []byte {
	return append(filePrefix(table), id...)
}

func (bms *BadgerMetaStore) CreateTable(ctx context.Context, ts TableSchema) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table", ts.Name).Msg("creating table schema")
	if ts.ID == "" {
		ts.ID = utils.GenRandomShortID()
	}
	now := time.Now()
	ts.CreatedAt, ts.UpdatedAt = now, now

	tsJSON, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}

	return bms.db.Update(func(txn *badger.Txn) error {
		var disabled []part.DataFile
		err := bms.iterFiles(txn, ts.Name, func(f part.DataFile) error {
			if f.Enabled {
				f.Enabled = false
				disabled = append(disabled, f)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, f := range disabled {
			if err := setJSON(txn, fileKey(ts.Name, f.ID), f); err != nil {
				return err
			}
		}
		if len(disabled) > 0 {
			logger.Debug().Str("table", ts.Name).Int("files", len(disabled)).Msg("disabled files of replaced table")
		}
		return txn.Set(tableKey(ts.Name), tsJSON)
	})
}

func (bms *BadgerMetaStore) GetTable(_ context.Context, table string) (TableSchema, error) {
	ts := TableSchema{}
	err := bms.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(table))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTableNotFound
		}
		if err != nil {
			return fmt.Errorf("error in txn.Get: %w", err)
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &ts)
		})
	})
	return ts, err
}

func (bms *BadgerMetaStore) CommitFiles(ctx context.Context, table string, files []part.DataFile) error {
	zerolog.Ctx(ctx).Debug().Str("table", table).Int("files", len(files)).Msg("committing files")
	return bms.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(table)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTableNotFound
		} else if err != nil {
			return fmt.Errorf("error in txn.Get: %w", err)
		}
		for _, f := range files {
			if err := setJSON(txn, fileKey(table, f.ID), f); err != nil {
				return err
			}
		}
		return nil
	})
}

func (bms *BadgerMetaStore) ListFiles(ctx context.Context, table string, filters ...FilterOption) ([]part.DataFile, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msgf("listing files with filter options %+v", filters)
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	files := make([]part.DataFile, 0)
	err := bms.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(tableKey(table)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTableNotFound
		}
		return bms.iterFiles(txn, table, func(f part.DataFile) error {
			if passAll(f, filters) {
				files = append(files, f)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (bms *BadgerMetaStore) iterFiles(txn *badger.Txn, table string, fn func(part.DataFile) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 10
	opts.Prefix = filePrefix(table)
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var f part.DataFile
		err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &f)
		})
		if err != nil {
			return fmt.Errorf("error unmarshalling file %s: %w", it.Item().Key(), err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}
	return txn.Set(key, b)
}

func (bms *BadgerMetaStore) Shutdown(context.Context) error {
	if err := bms.db.Close(); err != nil {
		return fmt.Errorf("error closing badger: %w", err)
	}
	return nil
}
