package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/danthegoodman1/icebucket/datastore"
	"github.com/danthegoodman1/icebucket/generator"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyExact(t *testing.T) {
	expected, err := generator.ExpectedKeyCounts(100, 10)
	require.NoError(t, err)
	observed := make(map[string]int64)
	for k, v := range expected {
		observed[k] = v
	}
	assert.NoError(t, Verify("partition_key", observed, expected, 0))
}

func TestVerifyReportsEveryMismatch(t *testing.T) {
	observed := map[string]int64{"a": 10, "b": 7, "c": 12, "extra": 1}
	expected := map[string]int64{"a": 10, "b": 10, "c": 10, "missing": 4}

	err := Verify("partition_key", observed, expected, 0)
	var de *DistributionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "partition_key", de.By)
	assert.Equal(t, []Mismatch{
		{Key: "b", Observed: 7, Expected: 10, Delta: -3},
		{Key: "c", Observed: 12, Expected: 10, Delta: 2},
		{Key: "extra", Observed: 1, Expected: 0, Delta: 1},
		{Key: "missing", Observed: 0, Expected: 4, Delta: -4},
	}, de.Mismatches)
	assert.Contains(t, err.Error(), "b (observed 7, expected 10, delta -3)")
	assert.Contains(t, err.Error(), "missing (observed 0, expected 4, delta -4)")

	// a tolerance of 2 only leaves the larger deltas
	err = Verify("partition_key", observed, expected, 2)
	require.True(t, errors.As(err, &de))
	assert.Len(t, de.Mismatches, 2)
	assert.Equal(t, "b", de.Mismatches[0].Key)
	assert.Equal(t, "missing", de.Mismatches[1].Key)

	assert.NoError(t, Verify("partition_key", observed, expected, 4))
}

func TestVerifyBucketsSortNumerically(t *testing.T) {
	err := Verify("bucket", map[int32]int64{2: 1, 10: 1}, map[int32]int64{2: 0, 10: 0}, 0)
	var de *DistributionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "2", de.Mismatches[0].Key)
	assert.Equal(t, "10", de.Mismatches[1].Key)
}

func TestVerifyNegativeTolerance(t *testing.T) {
	err := Verify("bucket", map[int32]int64{}, map[int32]int64{}, -1)
	assert.True(t, utils.IsConfigError(err))
	assert.ErrorIs(t, err, ErrNegativeTolerance)
}

type fakeSampler struct {
	rows []table.Row
	err  error
}

func (f fakeSampler) SelectRows(context.Context, string, warehouse.Filter) ([]table.Row, error) {
	return f.rows, f.err
}

func TestSampleContract(t *testing.T) {
	ctx := context.Background()

	_, err := Sample(ctx, fakeSampler{}, "t", "partition_0", 0)
	assert.True(t, utils.IsConfigError(err))

	rows := []table.Row{{ID: 0, PartitionKey: "partition_0"}, {ID: 10, PartitionKey: "partition_0"}}
	got, err := Sample(ctx, fakeSampler{rows: rows}, "t", "partition_0", 5)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = Sample(ctx, fakeSampler{rows: rows}, "t", "partition_0", 1)
	assert.ErrorIs(t, err, ErrBadSample)

	_, err = Sample(ctx, fakeSampler{rows: []table.Row{{ID: 1, PartitionKey: "partition_1"}}}, "t", "partition_0", 5)
	assert.ErrorIs(t, err, ErrBadSample)

	boom := &utils.CollaboratorError{Op: "select", Table: "t", Err: errors.New("boom")}
	_, err = Sample(ctx, fakeSampler{err: boom}, "t", "partition_0", 5)
	assert.Same(t, boom, err)
}

func newLoadedWarehouse(t *testing.T) *warehouse.Warehouse {
	t.Helper()
	ctx := context.Background()
	ds, err := datastore.NewDiskDataStore(t.TempDir())
	require.NoError(t, err)
	ms, err := metastore.NewBadgerMetaStore("")
	require.NoError(t, err)
	w := warehouse.Open(ms, ds)
	t.Cleanup(func() { w.Shutdown(ctx) })

	require.NoError(t, w.CreateTable(ctx, warehouse.TableDef{
		Name:   "t",
		Schema: table.RowSchema,
		Spec:   partitioner.NewBucketSpec(10),
	}))
	rows, err := generator.Generate(100, 10)
	require.NoError(t, err)
	_, err = w.InsertRows(ctx, "t", rows)
	require.NoError(t, err)
	return w
}

func TestSampleAgainstWarehouse(t *testing.T) {
	w := newLoadedWarehouse(t)
	rows, err := Sample(context.Background(), w, "t", "partition_0", 5)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	for _, row := range rows {
		assert.Equal(t, "partition_0", row.PartitionKey)
	}
}

func TestVerifyLayout(t *testing.T) {
	w := newLoadedWarehouse(t)
	report, err := VerifyLayout(context.Background(), w, "t")
	require.NoError(t, err)
	assert.Equal(t, 6, report.Files)
	assert.Equal(t, int64(100), report.Rows)
	assert.Equal(t, map[int32]int64{0: 10, 2: 20, 4: 20, 6: 10, 7: 20, 8: 20}, report.BucketRows)
}

// misplacedSource claims partition_0 rows (bucket 2) live in bucket 5.
type misplacedSource struct{}

func (misplacedSource) GetTable(context.Context, string) (warehouse.TableDef, error) {
	return warehouse.TableDef{Name: "t", Schema: table.RowSchema, Spec: partitioner.NewBucketSpec(10)}, nil
}

func (misplacedSource) ListDataFiles(context.Context, string) ([]part.DataFile, error) {
	return []part.DataFile{
		{ID: "a", Table: "t", Partition: "partition_key_bucket=5", FileName: "a.parquet", Rows: 2},
		{ID: "b", Table: "t", Partition: "partition_key_bucket=0", FileName: "b.parquet", Rows: 3},
	}, nil
}

func (misplacedSource) ReadDataFile(_ context.Context, f part.DataFile) ([]table.Row, error) {
	if f.ID == "a" {
		return []table.Row{{ID: 0, PartitionKey: "partition_0"}, {ID: 10, PartitionKey: "partition_0"}}, nil
	}
	return []table.Row{{ID: 2, PartitionKey: "partition_2"}}, nil
}

func TestVerifyLayoutMisplaced(t *testing.T) {
	report, err := VerifyLayout(context.Background(), misplacedSource{}, "t")
	var le *LayoutError
	require.True(t, errors.As(err, &le))
	require.Len(t, le.Misplaced, 2)
	assert.Equal(t, MisplacedRow{
		RowID:          0,
		PartitionKey:   "partition_0",
		File:           "t/data/partition_key_bucket=5/a.parquet",
		FileBucket:     5,
		ComputedBucket: 2,
	}, le.Misplaced[0])
	require.Len(t, le.CountMismatches, 1)
	assert.Contains(t, le.CountMismatches[0], "b.parquet has 1 rows, metadata says 3")
	assert.Equal(t, 2, report.Files)
}
