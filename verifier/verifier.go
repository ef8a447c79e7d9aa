// Package verifier checks an observed row distribution against the expected
// one and probes single partitions.
package verifier

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/warehouse"
)

var (
	ErrNegativeTolerance = errors.New("tolerance must be >= 0")
	ErrInvalidLimit      = errors.New("sample limit must be > 0")
	ErrBadSample         = errors.New("sample returned rows outside the contract")
)

type (
	Mismatch struct {
		Key      string
		Observed int64
		Expected int64
		// Delta is Observed - Expected
		Delta int64
	}

	// DistributionError lists every key outside tolerance, sorted by key.
	DistributionError struct {
		// By is what the counts are keyed by, partition_key or bucket
		By         string
		Tolerance  int32
		Mismatches []Mismatch
	}

	Sampler interface {
		SelectRows(ctx context.Context, table string, f warehouse.Filter) ([]table.Row, error)
	}
)

func (e *DistributionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s value(s) outside tolerance %d:", len(e.Mismatches), e.By, e.Tolerance)
	for _, m := range e.Mismatches {
		fmt.Fprintf(&sb, " %s (observed %d, expected %d, delta %+d);", m.Key, m.Observed, m.Expected, m.Delta)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Verify compares counts for every key present in either map. A key missing
// from one side counts as 0 there.
func Verify[K cmp.Ordered](by string, observed, expected map[K]int64, tolerance int32) error {
	if tolerance < 0 {
		return utils.NewConfigError(ErrNegativeTolerance, "got %d", tolerance)
	}
	union := make(map[K]struct{}, len(expected))
	for k := range observed {
		union[k] = struct{}{}
	}
	for k := range expected {
		union[k] = struct{}{}
	}

	var mismatches []Mismatch
	for _, k := range utils.SortedKeys(union) {
		delta := observed[k] - expected[k]
		if abs(delta) > int64(tolerance) {
			mismatches = append(mismatches, Mismatch{
				Key:      fmt.Sprint(k),
				Observed: observed[k],
				Expected: expected[k],
				Delta:    delta,
			})
		}
	}
	if len(mismatches) > 0 {
		return &DistributionError{By: by, Tolerance: tolerance, Mismatches: mismatches}
	}
	return nil
}

// Sample fetches at most limit rows of one partition key and checks that the
// collaborator honored both the filter and the limit.
func Sample(ctx context.Context, s Sampler, tableName, partitionKey string, limit int32) ([]table.Row, error) {
	if limit <= 0 {
		return nil, utils.NewConfigError(ErrInvalidLimit, "got %d", limit)
	}
	rows, err := s.SelectRows(ctx, tableName, warehouse.Filter{PartitionKey: partitionKey, Limit: limit})
	if err != nil {
		return nil, err
	}
	if int32(len(rows)) > limit {
		return nil, fmt.Errorf("%w: got %d rows for limit %d", ErrBadSample, len(rows), limit)
	}
	for _, row := range rows {
		if row.PartitionKey != partitionKey {
			return nil, fmt.Errorf("%w: row %d has partition_key %q, want %q", ErrBadSample, row.ID, row.PartitionKey, partitionKey)
		}
	}
	return rows, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
