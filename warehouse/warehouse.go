package warehouse

import (
	"context"
	"errors"
	"regexp"

	"github.com/danthegoodman1/icebucket/datastore"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
)

var (
	ErrSchemaMismatch   = errors.New("table schema must be {id int64, name string, partition_key string}")
	ErrInvalidTableName = errors.New("table name must be 1-128 characters of [A-Za-z0-9_-]")

	// table names become object key prefixes
	tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

const (
	PropFormatVersion = "format-version"
	PropUpdateMode    = "write.update.mode"
)

type (
	// TableDef is everything needed to create (or replace) a table.
	TableDef struct {
		Name       string
		Schema     table.Schema
		Spec       partitioner.BucketSpec
		Properties map[string]string
	}

	// Filter restricts SelectRows to one partition key value.
	Filter struct {
		PartitionKey string
		// Limit <= 0 means no limit
		Limit int32
	}

	InsertStats struct {
		NumRows      int64
		NumFiles     int64
		BytesWritten int64
	}

	// Collaborator is the table layer a verification run drives. It owns
	// persistence; callers only issue statements and queries.
	Collaborator interface {
		CreateTable(ctx context.Context, def TableDef) error
		GetTable(ctx context.Context, table string) (TableDef, error)
		// InsertRows appends rows as one batch, visible all together or not at all
		InsertRows(ctx context.Context, table string, rows []table.Row) (InsertStats, error)

		// CountByPartitionKey is SELECT partition_key, count(*) GROUP BY partition_key
		CountByPartitionKey(ctx context.Context, table string) (map[string]int64, error)
		// CountByBucket sums committed rows per physical bucket partition
		CountByBucket(ctx context.Context, table string) (map[int32]int64, error)
		// SelectRows is SELECT * WHERE partition_key = ? LIMIT ?
		SelectRows(ctx context.Context, table string, f Filter) ([]table.Row, error)

		ListDataFiles(ctx context.Context, table string) ([]part.DataFile, error)
		ReadDataFile(ctx context.Context, f part.DataFile) ([]table.Row, error)

		Shutdown(ctx context.Context) error
	}
)

// Validate rejects definitions that would never produce a verifiable table.
func (d TableDef) Validate() error {
	if err := ValidateTableName(d.Name); err != nil {
		return err
	}
	if !d.Schema.Matches(table.RowSchema) {
		return utils.NewConfigError(ErrSchemaMismatch, "got columns %v", d.Schema.ColumnNames())
	}
	if err := d.Spec.Validate(); err != nil {
		return err
	}
	return nil
}

func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return utils.NewConfigError(ErrInvalidTableName, "got %q", name)
	}
	return nil
}

func (d TableDef) toSchema() metastore.TableSchema {
	return metastore.TableSchema{
		Name:          d.Name,
		Columns:       d.Schema,
		PartitionSpec: d.Spec,
		Properties:    d.Properties,
	}
}

func fromSchema(ts metastore.TableSchema) TableDef {
	return TableDef{
		Name:       ts.Name,
		Schema:     ts.Columns,
		Spec:       ts.PartitionSpec,
		Properties: ts.Properties,
	}
}

func collabErr(op, table string, err error) error {
	// config errors are surfaced as is, the table layer never ran
	if err == nil || utils.IsConfigError(err) {
		return err
	}
	return &utils.CollaboratorError{Op: op, Table: table, Err: err}
}

// Open builds a Warehouse from the configured stores.
func Open(ms metastore.MetaStore, ds datastore.DataStore) *Warehouse {
	return &Warehouse{MetaStore: ms, DataStore: ds}
}
