// Package bucket implements the bucket partition transform.
//
// Values are hashed with 32-bit Murmur3 (x86 variant, seed 0) over a canonical
// byte encoding, the same hash Apache Iceberg specifies for its bucket
// transform, so bucket ids computed here line up with files written by any
// other Iceberg-compatible writer:
//
//	string, []byte   raw bytes (UTF-8 for strings)
//	int64            8 bytes, little endian
//	int32, int       sign extended to int64, then as int64
//	time.Time (date) days since the unix epoch, as int32
//
// The bucket id is (hash & 0x7fffffff) % n. The mask clears the sign bit so
// the modulo never sees a negative hash.
package bucket

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danthegoodman1/icebucket/utils"
	"github.com/twmb/murmur3"
)

var (
	ErrInvalidBucketCount = errors.New("bucket count must be > 0")
	ErrUnsupportedType    = errors.New("unsupported type for bucket transform")
)

// Bucket maps a string partition key to a bucket id in [0, n).
func Bucket(value string, n int32) (int32, error) {
	if n <= 0 {
		return 0, utils.NewConfigError(ErrInvalidBucketCount, "got %d", n)
	}
	return FromHash(HashString(value), n), nil
}

// BucketValue is Bucket for any value HashValue supports.
func BucketValue(v any, n int32) (int32, error) {
	if n <= 0 {
		return 0, utils.NewConfigError(ErrInvalidBucketCount, "got %d", n)
	}
	h, err := HashValue(v)
	if err != nil {
		return 0, err
	}
	return FromHash(h, n), nil
}

// FromHash applies the sign mask and modulo. n must already be validated.
func FromHash(h int32, n int32) int32 {
	return (h & math.MaxInt32) % n
}

func HashBytes(b []byte) int32 {
	return int32(murmur3.Sum32(b))
}

func HashString(s string) int32 {
	return HashBytes([]byte(s))
}

func HashInt64(v int64) int32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return HashBytes(b[:])
}

// HashInt32 widens to int64 first, so int and long columns holding the same
// number land in the same bucket.
func HashInt32(v int32) int32 {
	return HashInt64(int64(v))
}

// HashDate hashes the UTC calendar day of t as days since the epoch.
func HashDate(t time.Time) int32 {
	return HashInt32(EpochDays(t))
}

func EpochDays(t time.Time) int32 {
	y, m, d := t.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int32(midnight.Unix() / 86400)
}

// HashValue dispatches on the Go type of v. nil hashes to 0.
func HashValue(v any) (int32, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return HashString(val), nil
	case *string:
		if val == nil {
			return 0, nil
		}
		return HashString(*val), nil
	case []byte:
		return HashBytes(val), nil
	case int64:
		return HashInt64(val), nil
	case int32:
		return HashInt32(val), nil
	case int:
		return HashInt64(int64(val)), nil
	case time.Time:
		return HashDate(val), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}
