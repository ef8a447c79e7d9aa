package generator

import (
	"testing"

	"github.com/danthegoodman1/icebucket/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	rows, err := Generate(100, 10)
	require.NoError(t, err)
	require.Len(t, rows, 100)

	counts := make(map[string]int64)
	for i, row := range rows {
		assert.Equal(t, int64(i), row.ID)
		counts[row.PartitionKey]++
	}
	assert.Equal(t, "user_0", rows[0].Name)
	assert.Equal(t, "user_99", rows[99].Name)
	assert.Equal(t, "partition_3", rows[13].PartitionKey)
	assert.Equal(t, "partition_9", rows[99].PartitionKey)

	require.Len(t, counts, 10)
	for k, c := range counts {
		assert.Equal(t, int64(10), c, k)
	}
}

func TestGenerateIsRestartable(t *testing.T) {
	a, err := Generate(37, 4)
	require.NoError(t, err)
	b, err := Generate(37, 4)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// mutating one result must not leak into the next
	a[0].Name = "changed"
	c, err := Generate(37, 4)
	require.NoError(t, err)
	assert.Equal(t, "user_0", c[0].Name)
}

func TestGenerateEdgeCases(t *testing.T) {
	rows, err := Generate(0, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = Generate(5, 1)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, "partition_0", row.PartitionKey)
	}

	_, err = Generate(10, 0)
	assert.True(t, utils.IsConfigError(err))
	assert.ErrorIs(t, err, ErrInvalidKeyCardinality)

	_, err = Generate(10, -3)
	assert.True(t, utils.IsConfigError(err))

	_, err = Generate(-1, 3)
	assert.ErrorIs(t, err, ErrInvalidRowCount)
}

func TestExpectedKeyCounts(t *testing.T) {
	counts, err := ExpectedKeyCounts(100, 10)
	require.NoError(t, err)
	require.Len(t, counts, 10)
	assert.Equal(t, int64(100), utils.SumValues(counts))

	counts, err = ExpectedKeyCounts(7, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"partition_0": 3, "partition_1": 2, "partition_2": 2}, counts)

	counts, err = ExpectedKeyCounts(2, 5)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"partition_0": 1, "partition_1": 1}, counts)

	// must agree with what Generate actually emits
	rows, err := Generate(23, 6)
	require.NoError(t, err)
	observed := make(map[string]int64)
	for _, row := range rows {
		observed[row.PartitionKey]++
	}
	expected, err := ExpectedKeyCounts(23, 6)
	require.NoError(t, err)
	assert.Equal(t, expected, observed)
}
