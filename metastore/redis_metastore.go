package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type (
	RedisMetaStore struct {
		client *redis.Client
	}
)

func NewRedisMetaStore(ctx context.Context, addr, password string, pingTest bool) (*RedisMetaStore, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("connecting to redis metastore")
	rms := &RedisMetaStore{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			Password:    password,
			DB:          0,
			DialTimeout: time.Second * 3,
		}),
	}

	// Ping test first to ensure valid connection
	if pingTest {
		logger.Debug().Msg("running redis ping test")
		s := time.Now()
		_, err := rms.client.Ping(ctx).Result()
		if err != nil {
			rms.client.Close()
			return nil, fmt.Errorf("error pinging redis: %w", err)
		}
		logger.Debug().Msgf("redis ping test successful in %s", time.Since(s))
	}

	return rms, nil
}

func (rms *RedisMetaStore) TableKey(tableName string) string {
	return "t_" + tableName
}

func (rms *RedisMetaStore) FilesKey(tableName string) string {
	return rms.TableKey(tableName) + "_files"
}

func (rms *RedisMetaStore) GetTable(ctx context.Context, table string) (TableSchema, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msg("getting table schema")
	ts := TableSchema{}
	rawTableSchema, err := rms.client.Get(ctx, rms.TableKey(table)).Result()
	if errors.Is(err, redis.Nil) {
		return ts, ErrTableNotFound
	}
	if err != nil {
		return ts, fmt.Errorf("error in redis GET: %w", err)
	}

	// Bind JSON string to struct
	err = json.Unmarshal([]byte(rawTableSchema), &ts)
	if err != nil {
		return ts, fmt.Errorf("error in json.Unmarshall: %w", err)
	}

	return ts, nil
}

func (rms *RedisMetaStore) CreateTable(ctx context.Context, ts TableSchema) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table", ts.Name).Msg("creating table schema")
	if ts.ID == "" {
		ts.ID = utils.GenRandomShortID()
	}
	ts.CreatedAt = time.Now()
	ts.UpdatedAt = ts.CreatedAt

	jsonBytes, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}

	// Disable the files of any table we replace in the same transaction
	existing, err := rms.allFiles(ctx, ts.Name)
	if err != nil {
		return err
	}

	pipe := rms.client.TxPipeline()
	pipe.Set(ctx, rms.TableKey(ts.Name), string(jsonBytes), 0)
	for _, f := range existing {
		if !f.Enabled {
			continue
		}
		f.Enabled = false
		fJSON, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("error json.Marshal(file): %w", err)
		}
		pipe.HSet(ctx, rms.FilesKey(ts.Name), f.ID, string(fJSON))
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("error in redis pipeline exec: %w", err)
	}
	return nil
}

func (rms *RedisMetaStore) CommitFiles(ctx context.Context, table string, files []part.DataFile) error {
	n, err := rms.client.Exists(ctx, rms.TableKey(table)).Result()
	if err != nil {
		return fmt.Errorf("error in redis EXISTS: %w", err)
	}
	if n == 0 {
		return ErrTableNotFound
	}
	if len(files) == 0 {
		return nil
	}

	// Build a single HSet of all files
	filesHash := make([]any, 0, len(files)*2)
	for _, f := range files {
		jsonBytes, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("error in json.Marshal(file): %w", err)
		}
		filesHash = append(filesHash, f.ID, string(jsonBytes))
	}

	pipe := rms.client.TxPipeline()
	pipe.HSet(ctx, rms.FilesKey(table), filesHash...)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("error in redis pipeline exec: %w", err)
	}

	return nil
}

func (rms *RedisMetaStore) ListFiles(ctx context.Context, table string, filters ...FilterOption) ([]part.DataFile, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Msgf("listing files with filter options %+v", filters)
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	if _, err := rms.GetTable(ctx, table); err != nil {
		return nil, err
	}

	all, err := rms.allFiles(ctx, table)
	if err != nil {
		return nil, err
	}
	files := make([]part.DataFile, 0, len(all))
	for _, f := range all {
		if passAll(f, filters) {
			files = append(files, f)
		}
	}
	return files, nil
}

func (rms *RedisMetaStore) allFiles(ctx context.Context, table string) ([]part.DataFile, error) {
	logger := zerolog.Ctx(ctx)

	var cursorPos uint64 = 0
	var returnedCursor uint64 = 1
	files := make([]part.DataFile, 0)
	// HSCAN may return a field more than once
	seen := make(map[string]bool)

	// Loop until we have all the results
	for returnedCursor != 0 {
		logger.Debug().Msgf("running redis HSCAN with cursor %d", cursorPos)
		rawFiles, newCursor, err := rms.client.HScan(ctx, rms.FilesKey(table), cursorPos, "", 0).Result()
		if err != nil {
			return nil, fmt.Errorf("error in redis HSCAN: %w", err)
		}

		// HSCAN returns a flat field, value list
		for i := 0; i+1 < len(rawFiles); i += 2 {
			if seen[rawFiles[i]] {
				continue
			}
			seen[rawFiles[i]] = true
			f := part.DataFile{}
			err = json.Unmarshal([]byte(rawFiles[i+1]), &f)
			if err != nil {
				return nil, fmt.Errorf("error unmarshalling file ID '%s' under table '%s': %w", rawFiles[i], table, err)
			}
			files = append(files, f)
		}

		returnedCursor = newCursor
		cursorPos = newCursor
	}

	return files, nil
}

func (rms *RedisMetaStore) Shutdown(_ context.Context) error {
	err := rms.client.Close()
	if err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
