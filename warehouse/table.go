package warehouse

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/danthegoodman1/icebucket/datastore"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetParallelism = 4

type (
	// Warehouse stores each partition of a batch as a parquet file in the
	// DataStore and tracks files in the MetaStore.
	Warehouse struct {
		MetaStore metastore.MetaStore
		DataStore datastore.DataStore
	}
)

// CreateTable creates or replaces a table.
func (w *Warehouse) CreateTable(ctx context.Context, def TableDef) error {
	if err := def.Validate(); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("table", def.Name).Str("transform", def.Spec.Transform().String()).Msg("creating table")
	err := w.MetaStore.CreateTable(ctx, def.toSchema())
	if err != nil {
		return collabErr("create table", def.Name, fmt.Errorf("error in MetaStore.CreateTable: %w", err))
	}
	return nil
}

func (w *Warehouse) GetTable(ctx context.Context, tableName string) (TableDef, error) {
	ts, err := w.MetaStore.GetTable(ctx, tableName)
	if err != nil {
		return TableDef{}, collabErr("get table", tableName, fmt.Errorf("error in MetaStore.GetTable: %w", err))
	}
	return fromSchema(ts), nil
}

// InsertRows writes one parquet file per bucket partition, then commits all of
// the file records in a single metastore transaction. Files uploaded before a
// failed commit are never referenced, so readers see all rows or none.
func (w *Warehouse) InsertRows(ctx context.Context, tableName string, rows []table.Row) (InsertStats, error) {
	logger := zerolog.Ctx(ctx)
	var stats InsertStats

	def, err := w.GetTable(ctx, tableName)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		return stats, nil
	}

	plans := []partitioner.PartitionPlan{def.Spec.Plan()}
	parts := make(map[string][]table.Row)
	for _, row := range rows {
		p, err := partitioner.GetRowPartition(row, plans)
		if err != nil {
			return stats, collabErr("insert", tableName, fmt.Errorf("error getting partition for row %d: %w", row.ID, err))
		}
		parts[p] = append(parts[p], row)
	}

	files := make([]part.DataFile, 0, len(parts))
	for _, partition := range utils.SortedKeys(parts) {
		partRows := parts[partition]
		b, err := encodeRows(partRows)
		if err != nil {
			return stats, collabErr("insert", tableName, err)
		}

		f := part.DataFile{
			ID:        utils.GenKSortedID(""),
			Table:     tableName,
			Partition: partition,
			Rows:      int64(len(partRows)),
			Bytes:     int64(len(b)),
			Enabled:   true,
			CreatedAt: time.Now(),
		}
		f.FileName = f.ID + ".parquet"

		if err := w.DataStore.WriteFile(ctx, f.Key(), b); err != nil {
			return stats, collabErr("insert", tableName, fmt.Errorf("error in DataStore.WriteFile: %w", err))
		}
		logger.Debug().Str("partition", partition).Int64("rows", f.Rows).Int64("bytes", f.Bytes).Msg("wrote data file")

		files = append(files, f)
		stats.NumRows += f.Rows
		stats.BytesWritten += f.Bytes
	}

	if err := w.MetaStore.CommitFiles(ctx, tableName, files); err != nil {
		return InsertStats{}, collabErr("insert", tableName, fmt.Errorf("error in MetaStore.CommitFiles: %w", err))
	}
	stats.NumFiles = int64(len(files))
	logger.Debug().Interface("stats", stats).Msg("inserted rows")
	return stats, nil
}

func (w *Warehouse) ListDataFiles(ctx context.Context, tableName string) ([]part.DataFile, error) {
	files, err := w.MetaStore.ListFiles(ctx, tableName)
	if err != nil {
		return nil, collabErr("list files", tableName, fmt.Errorf("error in MetaStore.ListFiles: %w", err))
	}
	sortFiles(files)
	return files, nil
}

func (w *Warehouse) ReadDataFile(ctx context.Context, f part.DataFile) ([]table.Row, error) {
	b, err := w.DataStore.ReadFile(ctx, f.Key())
	if err != nil {
		return nil, collabErr("read file", f.Table, fmt.Errorf("error in DataStore.ReadFile: %w", err))
	}
	rows, err := decodeRows(b)
	if err != nil {
		return nil, collabErr("read file", f.Table, fmt.Errorf("error decoding %s: %w", f.Key(), err))
	}
	return rows, nil
}

func (w *Warehouse) CountByPartitionKey(ctx context.Context, tableName string) (map[string]int64, error) {
	files, err := w.ListDataFiles(ctx, tableName)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, f := range files {
		rows, err := w.ReadDataFile(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.PartitionKey]++
		}
	}
	return counts, nil
}

func (w *Warehouse) CountByBucket(ctx context.Context, tableName string) (map[int32]int64, error) {
	def, err := w.GetTable(ctx, tableName)
	if err != nil {
		return nil, err
	}
	files, err := w.ListDataFiles(ctx, tableName)
	if err != nil {
		return nil, err
	}
	counts := make(map[int32]int64)
	for _, f := range files {
		b, err := def.Spec.BucketFromPartition(f.Partition)
		if err != nil {
			return nil, collabErr("count by bucket", tableName, err)
		}
		counts[b] += f.Rows
	}
	return counts, nil
}

// SelectRows only reads the files of the bucket the key hashes to.
func (w *Warehouse) SelectRows(ctx context.Context, tableName string, f Filter) ([]table.Row, error) {
	def, err := w.GetTable(ctx, tableName)
	if err != nil {
		return nil, err
	}
	b, err := def.Spec.BucketOf(table.Row{PartitionKey: f.PartitionKey})
	if err != nil {
		return nil, collabErr("select", tableName, err)
	}
	files, err := w.MetaStore.ListFiles(ctx, tableName, metastore.InPartitions(def.Spec.PartitionPath(b)))
	if err != nil {
		return nil, collabErr("select", tableName, fmt.Errorf("error in MetaStore.ListFiles: %w", err))
	}
	sortFiles(files)

	out := make([]table.Row, 0)
	for _, file := range files {
		rows, err := w.ReadDataFile(ctx, file)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.PartitionKey != f.PartitionKey {
				continue
			}
			out = append(out, row)
			if f.Limit > 0 && int32(len(out)) >= f.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (w *Warehouse) Shutdown(ctx context.Context) error {
	var errs []error
	if err := w.DataStore.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error in DataStore.Shutdown: %w", err))
	}
	if err := w.MetaStore.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error in MetaStore.Shutdown: %w", err))
	}
	if len(errs) > 0 {
		return collabErr("shutdown", "", errors.Join(errs...))
	}
	return nil
}

func sortFiles(files []part.DataFile) {
	slices.SortFunc(files, func(a, b part.DataFile) int {
		if c := cmp.Compare(a.Partition, b.Partition); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func encodeRows(rows []table.Row) ([]byte, error) {
	var buf bytes.Buffer
	pw, err := writer.NewParquetWriterFromWriter(&buf, new(table.Row), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("error in NewParquetWriterFromWriter: %w", err)
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return nil, fmt.Errorf("error in pw.Write for row %d: %w", row.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRows(b []byte) ([]table.Row, error) {
	pf := buffer.NewBufferFileFromBytes(b)
	pr, err := reader.NewParquetReader(pf, new(table.Row), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("error in NewParquetReader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]table.Row, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("error in pr.Read: %w", err)
	}
	return rows, nil
}
