package partitioner

import (
	"fmt"
	"strconv"

	"github.com/danthegoodman1/icebucket/bucket"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
)

func NewBucketSpec(bucketCount int32) BucketSpec {
	return BucketSpec{BucketCount: bucketCount, SourceColumn: table.ColPartitionKey}
}

func (s BucketSpec) Validate() error {
	if s.BucketCount <= 0 {
		return utils.NewConfigError(bucket.ErrInvalidBucketCount, "got %d", s.BucketCount)
	}
	// only partition_key is bucketed, the other columns hash through other encodings
	if s.SourceColumn != table.ColPartitionKey {
		return utils.NewConfigError(ErrSchemaMismatch, "%q", s.SourceColumn)
	}
	return nil
}

func (s BucketSpec) Transform() Transform {
	return Transform{Name: TransformBucket, Param: s.BucketCount}
}

func (s BucketSpec) Plan() PartitionPlan {
	return s.Transform().Plan(s.SourceColumn)
}

// BucketOf computes the bucket id of a single row.
func (s BucketSpec) BucketOf(row table.Row) (int32, error) {
	return bucket.BucketValue(row.Value(s.SourceColumn), s.BucketCount)
}

// PartitionPath is the physical directory a bucket's data files live under.
func (s BucketSpec) PartitionPath(b int32) string {
	return fmt.Sprintf("%s=%d", s.Plan().As, b)
}

// BucketFromPartition is the inverse of PartitionPath.
func (s BucketSpec) BucketFromPartition(path string) (int32, error) {
	fields, err := ParsePartitionPath(path)
	if err != nil {
		return 0, err
	}
	raw, ok := fields[s.Plan().As]
	if !ok {
		return 0, fmt.Errorf("%w: %q has no %s field", ErrBadPartitionPath, path, s.Plan().As)
	}
	b, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || b < 0 || b >= int64(s.BucketCount) {
		return 0, fmt.Errorf("%w: bucket %q out of range for %d buckets", ErrBadPartitionPath, raw, s.BucketCount)
	}
	return int32(b), nil
}

// Assign groups rows by bucket id. Rows keep their input order within a
// bucket, and every input row lands in exactly one bucket.
func Assign(rows []table.Row, spec BucketSpec) (map[int32][]table.Row, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	buckets := make(map[int32][]table.Row)
	for _, row := range rows {
		b, err := spec.BucketOf(row)
		if err != nil {
			return nil, fmt.Errorf("error bucketing row %d: %w", row.ID, err)
		}
		buckets[b] = append(buckets[b], row)
	}
	return buckets, nil
}

// PredictBucketCounts is the per bucket row count Assign would produce.
func PredictBucketCounts(rows []table.Row, spec BucketSpec) (map[int32]int64, error) {
	buckets, err := Assign(rows, spec)
	if err != nil {
		return nil, err
	}
	counts := make(map[int32]int64, len(buckets))
	for b, bucketRows := range buckets {
		counts[b] = int64(len(bucketRows))
	}
	return counts, nil
}
