package bucket

import (
	"testing"
	"time"

	"github.com/danthegoodman1/icebucket/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference values from the Iceberg 32-bit hash requirements.
func TestHashVectors(t *testing.T) {
	assert.Equal(t, int32(1210000089), HashString("iceberg"))
	assert.Equal(t, int32(2017239379), HashInt32(34))
	assert.Equal(t, int32(2017239379), HashInt64(34))
	assert.Equal(t, int32(-653330422), HashDate(time.Date(2017, 11, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(-188683207), HashBytes([]byte{0, 1, 2, 3}))
	assert.Equal(t, int32(0), HashString(""))
	assert.Equal(t, int32(-1130389400), HashString("héllo"))
}

func TestBucket(t *testing.T) {
	tests := []struct {
		value string
		n     int32
		want  int32
	}{
		{"iceberg", 16, 9},
		{"", 10, 0},
		{"partition_0", 10, 2},
		{"partition_1", 10, 2},
		{"partition_2", 10, 0},
		{"partition_3", 10, 6},
		{"partition_4", 10, 4},
		{"partition_5", 10, 4},
		{"partition_6", 10, 7},
		{"partition_7", 10, 7},
		{"partition_8", 10, 8},
		{"partition_9", 10, 8},
		{"partition_3", 16, 0},
		{"partition_7", 16, 3},
		{"anything", 1, 0},
	}
	for _, tt := range tests {
		got, err := Bucket(tt.value, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "bucket(%q, %d)", tt.value, tt.n)
	}
}

func TestBucketDeterministicAndInRange(t *testing.T) {
	values := []string{"", "a", "partition_0", "héllo", "a much longer value that spans several blocks"}
	for _, n := range []int32{1, 2, 3, 7, 10, 16, 1024, 2147483647} {
		for _, v := range values {
			first, err := Bucket(v, n)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				again, err := Bucket(v, n)
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
			assert.GreaterOrEqual(t, first, int32(0))
			assert.Less(t, first, n)
		}
	}
}

func TestBucketInvalidCount(t *testing.T) {
	for _, n := range []int32{0, -1, -2147483648} {
		_, err := Bucket("v", n)
		require.Error(t, err)
		assert.True(t, utils.IsConfigError(err))
		assert.ErrorIs(t, err, ErrInvalidBucketCount)

		_, err = BucketValue(int64(1), n)
		assert.True(t, utils.IsConfigError(err))
	}
}

func TestFromHashMasksSignBit(t *testing.T) {
	// -653330422 & 0x7fffffff = 1494153226
	assert.Equal(t, int32(1494153226%10), FromHash(-653330422, 10))
	assert.Equal(t, int32(0), FromHash(-2147483648, 7))
	assert.Equal(t, int32(2147483647%7), FromHash(-1, 7))
}

func TestHashValue(t *testing.T) {
	h, err := HashValue(nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), h)

	h, err = HashValue(int32(34))
	require.NoError(t, err)
	assert.Equal(t, int32(2017239379), h)

	h, err = HashValue(34)
	require.NoError(t, err)
	assert.Equal(t, int32(2017239379), h)

	h, err = HashValue(utils.Ptr("iceberg"))
	require.NoError(t, err)
	assert.Equal(t, int32(1210000089), h)

	_, err = HashValue(1.5)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, utils.IsConfigError(err))

	b, err := BucketValue("iceberg", 16)
	require.NoError(t, err)
	assert.Equal(t, int32(9), b)
}

func TestEpochDays(t *testing.T) {
	assert.Equal(t, int32(0), EpochDays(time.Date(1970, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, int32(17486), EpochDays(time.Date(2017, 11, 16, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(-1), EpochDays(time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC)))
}
