package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danthegoodman1/icebucket/datastore"
	"github.com/danthegoodman1/icebucket/generator"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/part"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	ds, err := datastore.NewDiskDataStore(t.TempDir())
	require.NoError(t, err)
	ms, err := metastore.NewBadgerMetaStore("")
	require.NoError(t, err)
	w := Open(ms, ds)
	t.Cleanup(func() {
		w.Shutdown(context.Background())
	})
	return w
}

func testDef(name string, buckets int32) TableDef {
	return TableDef{
		Name:   name,
		Schema: table.RowSchema,
		Spec:   partitioner.NewBucketSpec(buckets),
		Properties: map[string]string{
			PropFormatVersion: "2",
			PropUpdateMode:    "merge-on-read",
		},
	}
}

func TestInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	w := newTestWarehouse(t)

	require.NoError(t, w.CreateTable(ctx, testDef("t", 10)))
	def, err := w.GetTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "merge-on-read", def.Properties[PropUpdateMode])

	rows, err := generator.Generate(100, 10)
	require.NoError(t, err)
	stats, err := w.InsertRows(ctx, "t", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.NumRows)
	// 10 keys land in 6 distinct buckets
	assert.Equal(t, int64(6), stats.NumFiles)
	assert.Greater(t, stats.BytesWritten, int64(0))

	byKey, err := w.CountByPartitionKey(ctx, "t")
	require.NoError(t, err)
	require.Len(t, byKey, 10)
	for k, c := range byKey {
		assert.Equal(t, int64(10), c, k)
	}

	byBucket, err := w.CountByBucket(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, map[int32]int64{0: 10, 2: 20, 4: 20, 6: 10, 7: 20, 8: 20}, byBucket)

	sample, err := w.SelectRows(ctx, "t", Filter{PartitionKey: "partition_0", Limit: 5})
	require.NoError(t, err)
	require.Len(t, sample, 5)
	for _, row := range sample {
		assert.Equal(t, "partition_0", row.PartitionKey)
	}
	// rows come back in file order
	assert.Equal(t, []int64{0, 10, 20, 30, 40}, []int64{sample[0].ID, sample[1].ID, sample[2].ID, sample[3].ID, sample[4].ID})

	all, err := w.SelectRows(ctx, "t", Filter{PartitionKey: "partition_1"})
	require.NoError(t, err)
	assert.Len(t, all, 10)

	none, err := w.SelectRows(ctx, "t", Filter{PartitionKey: "partition_404", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, none)

	files, err := w.ListDataFiles(ctx, "t")
	require.NoError(t, err)
	require.Len(t, files, 6)
	assert.Equal(t, "partition_key_bucket=0", files[0].Partition)
	fileRows, err := w.ReadDataFile(ctx, files[0])
	require.NoError(t, err)
	require.Len(t, fileRows, 10)
	assert.Equal(t, table.Row{ID: 2, Name: "user_2", PartitionKey: "partition_2"}, fileRows[0])
}

func TestCreateOrReplace(t *testing.T) {
	ctx := context.Background()
	w := newTestWarehouse(t)

	require.NoError(t, w.CreateTable(ctx, testDef("t", 10)))
	rows, err := generator.Generate(20, 4)
	require.NoError(t, err)
	_, err = w.InsertRows(ctx, "t", rows)
	require.NoError(t, err)

	require.NoError(t, w.CreateTable(ctx, testDef("t", 3)))
	counts, err := w.CountByPartitionKey(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = w.InsertRows(ctx, "t", rows)
	require.NoError(t, err)
	byBucket, err := w.CountByBucket(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(20), utils.SumValues(byBucket))
	for b := range byBucket {
		assert.Less(t, b, int32(3))
	}
}

func TestCreateTableRejectsBadDefs(t *testing.T) {
	ctx := context.Background()
	w := newTestWarehouse(t)

	err := w.CreateTable(ctx, testDef("t", 0))
	assert.True(t, utils.IsConfigError(err))

	def := testDef("t", 10)
	def.Schema = table.Schema{{Name: "id", Type: "int64"}}
	err = w.CreateTable(ctx, def)
	assert.True(t, utils.IsConfigError(err))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	err = w.CreateTable(ctx, testDef("", 10))
	assert.True(t, utils.IsConfigError(err))
}

func TestCreateTableRejectsUnsafeNames(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	ds, err := datastore.NewDiskDataStore(filepath.Join(base, "warehouse"))
	require.NoError(t, err)
	ms, err := metastore.NewBadgerMetaStore("")
	require.NoError(t, err)
	w := Open(ms, ds)
	defer w.Shutdown(ctx)

	for _, name := range []string{"../escaped", "a/b", `a\b`, "..", "a.b", "a b", strings.Repeat("x", 129)} {
		err := w.CreateTable(ctx, testDef(name, 10))
		assert.True(t, utils.IsConfigError(err), name)
		assert.ErrorIs(t, err, ErrInvalidTableName, name)

		_, err = w.GetTable(ctx, name)
		assert.ErrorIs(t, err, metastore.ErrTableNotFound, name)
	}
	_, err = os.Stat(filepath.Join(base, "escaped"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.CreateTable(ctx, testDef("Part-bucket_2", 10)))
}

func TestMissingTableIsCollaboratorError(t *testing.T) {
	ctx := context.Background()
	w := newTestWarehouse(t)

	_, err := w.InsertRows(ctx, "nope", []table.Row{{ID: 1}})
	assert.True(t, utils.IsCollaboratorError(err))
	assert.ErrorIs(t, err, metastore.ErrTableNotFound)

	_, err = w.CountByPartitionKey(ctx, "nope")
	assert.True(t, utils.IsCollaboratorError(err))

	_, err = w.SelectRows(ctx, "nope", Filter{PartitionKey: "partition_0"})
	assert.True(t, utils.IsCollaboratorError(err))
}

type failingCommitStore struct {
	metastore.MetaStore
}

var errCommit = errors.New("commit refused")

func (failingCommitStore) CommitFiles(context.Context, string, []part.DataFile) error {
	return errCommit
}

func TestInsertIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ds, err := datastore.NewDiskDataStore(t.TempDir())
	require.NoError(t, err)
	ms, err := metastore.NewBadgerMetaStore("")
	require.NoError(t, err)
	defer ms.Shutdown(ctx)

	w := Open(failingCommitStore{MetaStore: ms}, ds)
	require.NoError(t, w.CreateTable(ctx, testDef("t", 10)))

	rows, err := generator.Generate(100, 10)
	require.NoError(t, err)
	stats, err := w.InsertRows(ctx, "t", rows)
	require.Error(t, err)
	assert.True(t, utils.IsCollaboratorError(err))
	assert.ErrorIs(t, err, errCommit)
	assert.Equal(t, InsertStats{}, stats)

	counts, err := w.CountByPartitionKey(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, counts)
}
