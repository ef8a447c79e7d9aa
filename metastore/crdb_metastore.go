package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/icebucket/crdb"
	"github.com/danthegoodman1/icebucket/migrations"
	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

type (
	// CRDBMetaStore keeps table and file records in CockroachDB.
	CRDBMetaStore struct {
		pool       *pgxpool.Pool
		tryTimeout time.Duration
	}
)

func NewCRDBMetaStore(ctx context.Context, dsn string) (*CRDBMetaStore, error) {
	if dsn == "" {
		return nil, utils.NewConfigError(nil, "CRDB_DSN is required for the crdb metastore")
	}
	if err := migrations.EnsureMigrations(dsn); err != nil {
		return nil, fmt.Errorf("error in EnsureMigrations: %w", err)
	}
	pool, err := crdb.ConnectToDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error in ConnectToDB: %w", err)
	}
	return &CRDBMetaStore{pool: pool, tryTimeout: crdb.StandardContextTimeout}, nil
}

func (cms *CRDBMetaStore) CreateTable(ctx context.Context, ts TableSchema) error {
	zerolog.Ctx(ctx).Debug().Str("table", ts.Name).Msg("creating table schema")
	if ts.ID == "" {
		ts.ID = utils.GenRandomShortID()
	}
	now := time.Now()
	ts.CreatedAt, ts.UpdatedAt = now, now
	tsJSON, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("error in json.Marshal: %w", err)
	}

	return utils.ReliableExecInTx(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPSERT INTO tables (name, id, schema, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, ts.Name, ts.ID, tsJSON, now)
		if err != nil {
			return fmt.Errorf("error upserting table: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE data_files SET enabled = false
			WHERE table_name = $1 AND enabled = true
		`, ts.Name)
		if err != nil {
			return fmt.Errorf("error disabling replaced files: %w", err)
		}
		return nil
	})
}

func (cms *CRDBMetaStore) GetTable(ctx context.Context, table string) (TableSchema, error) {
	ts := TableSchema{}
	err := utils.ReliableExec(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		return getTable(ctx, conn, table, &ts)
	})
	return ts, err
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTable(ctx context.Context, q queryRower, table string, ts *TableSchema) error {
	var raw []byte
	err := q.QueryRow(ctx, `SELECT schema FROM tables WHERE name = $1`, table).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTableNotFound
	}
	if err != nil {
		return fmt.Errorf("error selecting table: %w", err)
	}
	if err := json.Unmarshal(raw, ts); err != nil {
		return fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	return nil
}

func (cms *CRDBMetaStore) CommitFiles(ctx context.Context, table string, files []part.DataFile) error {
	return utils.ReliableExecInTx(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, tx pgx.Tx) error {
		var ts TableSchema
		if err := getTable(ctx, tx, table, &ts); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, f := range files {
			batch.Queue(`
				INSERT INTO data_files (table_name, id, partition, file_name, rows, bytes, enabled, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, table, f.ID, f.Partition, f.FileName, f.Rows, f.Bytes, f.Enabled, f.CreatedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range files {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("error inserting data file: %w", err)
			}
		}
		return br.Close()
	})
}

func (cms *CRDBMetaStore) ListFiles(ctx context.Context, table string, filters ...FilterOption) ([]part.DataFile, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	files := make([]part.DataFile, 0)
	err := utils.ReliableExec(ctx, cms.pool, cms.tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		files = files[:0]
		var ts TableSchema
		if err := getTable(ctx, conn, table, &ts); err != nil {
			return err
		}
		rows, err := conn.Query(ctx, `
			SELECT id, partition, file_name, rows, bytes, enabled, created_at
			FROM data_files
			WHERE table_name = $1 AND enabled = true
			ORDER BY partition, id
		`, table)
		if err != nil {
			return fmt.Errorf("error selecting data files: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			f := part.DataFile{Table: table}
			if err := rows.Scan(&f.ID, &f.Partition, &f.FileName, &f.Rows, &f.Bytes, &f.Enabled, &f.CreatedAt); err != nil {
				return fmt.Errorf("error scanning data file: %w", err)
			}
			if passAll(f, filters) {
				files = append(files, f)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (cms *CRDBMetaStore) Shutdown(context.Context) error {
	cms.pool.Close()
	return nil
}
