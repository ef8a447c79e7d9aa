package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/warehouse"
)

type (
	LayoutSource interface {
		GetTable(ctx context.Context, table string) (warehouse.TableDef, error)
		ListDataFiles(ctx context.Context, table string) ([]part.DataFile, error)
		ReadDataFile(ctx context.Context, f part.DataFile) ([]table.Row, error)
	}

	// LayoutReport summarizes the physical files that were checked.
	LayoutReport struct {
		Files      int
		Rows       int64
		BucketRows map[int32]int64
	}

	MisplacedRow struct {
		RowID          int64
		PartitionKey   string
		File           string
		FileBucket     int32
		ComputedBucket int32
	}

	// LayoutError means the physical grouping disagrees with the transform.
	LayoutError struct {
		Misplaced []MisplacedRow
		// CountMismatches lists files whose metadata row count differs from
		// the rows actually in the file
		CountMismatches []string
	}
)

func (e *LayoutError) Error() string {
	var parts []string
	for _, m := range e.Misplaced {
		parts = append(parts, fmt.Sprintf("row %d (%s) in %s is in bucket %d, hashes to %d", m.RowID, m.PartitionKey, m.File, m.FileBucket, m.ComputedBucket))
	}
	parts = append(parts, e.CountMismatches...)
	return fmt.Sprintf("layout does not match partition spec: %s", strings.Join(parts, "; "))
}

// VerifyLayout reads every data file of the table and checks each row against
// the bucket of the partition directory it was written under.
func VerifyLayout(ctx context.Context, src LayoutSource, tableName string) (LayoutReport, error) {
	report := LayoutReport{BucketRows: make(map[int32]int64)}

	def, err := src.GetTable(ctx, tableName)
	if err != nil {
		return report, fmt.Errorf("error in GetTable: %w", err)
	}
	files, err := src.ListDataFiles(ctx, tableName)
	if err != nil {
		return report, fmt.Errorf("error in ListDataFiles: %w", err)
	}

	layoutErr := &LayoutError{}
	for _, f := range files {
		fileBucket, err := def.Spec.BucketFromPartition(f.Partition)
		if err != nil {
			return report, fmt.Errorf("error parsing partition of %s: %w", f.Key(), err)
		}
		rows, err := src.ReadDataFile(ctx, f)
		if err != nil {
			return report, fmt.Errorf("error in ReadDataFile: %w", err)
		}
		if int64(len(rows)) != f.Rows {
			layoutErr.CountMismatches = append(layoutErr.CountMismatches, fmt.Sprintf("%s has %d rows, metadata says %d", f.Key(), len(rows), f.Rows))
		}
		for _, row := range rows {
			b, err := def.Spec.BucketOf(row)
			if err != nil {
				return report, err
			}
			if b != fileBucket {
				layoutErr.Misplaced = append(layoutErr.Misplaced, MisplacedRow{
					RowID:          row.ID,
					PartitionKey:   row.PartitionKey,
					File:           f.Key(),
					FileBucket:     fileBucket,
					ComputedBucket: b,
				})
			}
		}
		report.Files++
		report.Rows += int64(len(rows))
		report.BucketRows[fileBucket] += int64(len(rows))
	}

	if len(layoutErr.Misplaced) > 0 || len(layoutErr.CountMismatches) > 0 {
		return report, layoutErr
	}
	return report, nil
}
