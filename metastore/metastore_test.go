package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchema(name string) TableSchema {
	return TableSchema{
		Name:          name,
		Columns:       table.RowSchema,
		PartitionSpec: partitioner.NewBucketSpec(10),
		Properties:    map[string]string{"format-version": "2"},
	}
}

func newTestFile(table, id, partition string) part.DataFile {
	return part.DataFile{
		ID:        id,
		Table:     table,
		Partition: partition,
		FileName:  id + ".parquet",
		Rows:      10,
		Bytes:     100,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

// runMetaStoreSuite exercises the MetaStore contract against any implementation.
func runMetaStoreSuite(t *testing.T, ms MetaStore) {
	ctx := context.Background()

	_, err := ms.GetTable(ctx, "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)
	err = ms.CommitFiles(ctx, "missing", []part.DataFile{newTestFile("missing", "a", "p=0")})
	assert.ErrorIs(t, err, ErrTableNotFound)
	_, err = ms.ListFiles(ctx, "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	require.NoError(t, ms.CreateTable(ctx, newTestSchema("t")))
	ts, err := ms.GetTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "t", ts.Name)
	assert.NotEmpty(t, ts.ID)
	assert.Equal(t, int32(10), ts.PartitionSpec.BucketCount)
	assert.Equal(t, table.RowSchema, ts.Columns)
	assert.Equal(t, "2", ts.Properties["format-version"])

	files, err := ms.ListFiles(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, ms.CommitFiles(ctx, "t", []part.DataFile{
		newTestFile("t", "a", "partition_key_bucket=0"),
		newTestFile("t", "b", "partition_key_bucket=2"),
		newTestFile("t", "c", "partition_key_bucket=7"),
	}))

	files, err = ms.ListFiles(ctx, "t")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = ms.ListFiles(ctx, "t", InPartitions("partition_key_bucket=2", "partition_key_bucket=9"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b", files[0].ID)

	files, err = ms.ListFiles(ctx, "t", FilterOption{Operator: GTE, Val: "partition_key_bucket=2"})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = ms.ListFiles(ctx, "t", FilterOption{Operator: IN, Val: "not a slice"})
	assert.ErrorIs(t, err, ErrBadFilter)

	// replacing the table hides the old files
	require.NoError(t, ms.CreateTable(ctx, newTestSchema("t")))
	files, err = ms.ListFiles(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, ms.CommitFiles(ctx, "t", []part.DataFile{newTestFile("t", "d", "partition_key_bucket=4")}))
	files, err = ms.ListFiles(ctx, "t")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "d", files[0].ID)
}

func TestBadgerMetaStore(t *testing.T) {
	ms, err := NewBadgerMetaStore("")
	require.NoError(t, err)
	defer ms.Shutdown(context.Background())

	runMetaStoreSuite(t, ms)
}

func TestBadgerMetaStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ms, err := NewBadgerMetaStore(dir)
	require.NoError(t, err)
	require.NoError(t, ms.CreateTable(ctx, newTestSchema("t")))
	require.NoError(t, ms.CommitFiles(ctx, "t", []part.DataFile{newTestFile("t", "a", "partition_key_bucket=1")}))
	require.NoError(t, ms.Shutdown(ctx))

	ms, err = NewBadgerMetaStore(dir)
	require.NoError(t, err)
	defer ms.Shutdown(ctx)
	files, err := ms.ListFiles(ctx, "t")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "partition_key_bucket=1", files[0].Partition)
}

func TestBadgerListFilesIsPerTable(t *testing.T) {
	ctx := context.Background()
	ms, err := NewBadgerMetaStore("")
	require.NoError(t, err)
	defer ms.Shutdown(ctx)

	for _, name := range []string{"a", "a/b", "ab"} {
		require.NoError(t, ms.CreateTable(ctx, newTestSchema(name)))
		require.NoError(t, ms.CommitFiles(ctx, name, []part.DataFile{newTestFile(name, "f1", "partition_key_bucket=0")}))
	}

	for _, name := range []string{"a", "a/b", "ab"} {
		files, err := ms.ListFiles(ctx, name)
		require.NoError(t, err)
		require.Len(t, files, 1, name)
		assert.Equal(t, name, files[0].Table)
	}
}

func TestPassFilterOption(t *testing.T) {
	assert.True(t, PassFilterOption("b", FilterOption{Operator: GT, Val: "a"}))
	assert.False(t, PassFilterOption("a", FilterOption{Operator: GT, Val: "a"}))
	assert.True(t, PassFilterOption("a", FilterOption{Operator: LTE, Val: "a"}))
	assert.True(t, PassFilterOption("x", InPartitions("y", "x")))
	assert.False(t, PassFilterOption("z", InPartitions("y", "x")))
	assert.False(t, PassFilterOption("z", FilterOption{Operator: "like", Val: "z"}))
}
