package metastore

import (
	"context"
	"errors"
	"time"

	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
)

var (
	ErrTableNotFound = utils.PermError("table not found")
	ErrBadFilter     = errors.New("bad filter option")
)

type (
	MetaStore interface {
		// CreateTable creates the table, or replaces it if one with the same
		// name exists. Replacing disables every data file of the old table.
		CreateTable(ctx context.Context, ts TableSchema) error
		// GetTable fetches the table schema, or ErrTableNotFound
		GetTable(ctx context.Context, table string) (TableSchema, error)

		// CommitFiles registers a batch of data files. Either every file
		// becomes visible or none does.
		CommitFiles(ctx context.Context, table string, files []part.DataFile) error
		// ListFiles lists the enabled files of a table whose partition passes
		// every filter
		ListFiles(ctx context.Context, table string, filters ...FilterOption) ([]part.DataFile, error)

		Shutdown(ctx context.Context) error
	}

	TableSchema struct {
		ID   string
		Name string

		Columns       table.Schema
		PartitionSpec partitioner.BucketSpec
		// Properties such as format-version and write.update.mode
		Properties map[string]string

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Operator string

	// FilterOption is matched against a data file's partition path.
	FilterOption struct {
		Operator Operator
		Val      any
	}
)

const (
	GT  Operator = ">"
	GTE Operator = ">="
	IN  Operator = "in"
	LT  Operator = "<"
	LTE Operator = "<="
)

// InPartitions is the filter used for bucket pruning.
func InPartitions(partitions ...string) FilterOption {
	return FilterOption{Operator: IN, Val: partitions}
}

func PassFilterOption(val string, filter FilterOption) bool {
	switch filter.Operator {
	case GT:
		return val > filter.Val.(string)
	case GTE:
		return val >= filter.Val.(string)
	case IN:
		return utils.ContainsString(filter.Val.([]string), val)
	case LT:
		return val < filter.Val.(string)
	case LTE:
		return val <= filter.Val.(string)
	default:
		return false
	}
}

func passAll(f part.DataFile, filters []FilterOption) bool {
	if !f.Enabled {
		return false
	}
	for _, filter := range filters {
		if !PassFilterOption(f.Partition, filter) {
			return false
		}
	}
	return true
}

func validateFilters(filters []FilterOption) error {
	for _, f := range filters {
		switch f.Operator {
		case IN:
			if _, ok := f.Val.([]string); !ok {
				return ErrBadFilter
			}
		case GT, GTE, LT, LTE:
			if _, ok := f.Val.(string); !ok {
				return ErrBadFilter
			}
		default:
			return ErrBadFilter
		}
	}
	return nil
}
