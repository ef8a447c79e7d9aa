package utils

import (
	"cmp"
	"os"
	"slices"
	"strconv"

	"github.com/danthegoodman1/icebucket/gologger"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/segmentio/ksuid"
)

var logger = gologger.NewLogger()

func GetEnvOrDefault(env, defaultVal string) string {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	} else {
		return e
	}
}

// ParseIntOrDefault parses a raw env value, falling back when it is unset.
func ParseIntOrDefault(name, raw string, defaultVal int64) (int64, error) {
	if raw == "" {
		return defaultVal, nil
	}
	intVal, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		logger.Error().Str("env", name).Str("value", raw).Msg("failed to parse env to int")
		return 0, NewConfigError(err, "%s must be a 32 bit integer", name)
	}
	return intVal, nil
}

func GenKSortedID(prefix string) string {
	return prefix + ksuid.New().String()
}

func GenRandomShortID() string {
	// reduced character set that's less probable to mis-type
	// change for conflicts is still only 1:128 trillion
	return gonanoid.MustGenerate("abcdefghikmonpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ0123456789", 8)
}

func Ptr[T any](s T) *T {
	return &s
}

func Deref[T any](ref *T, fallback T) T {
	if ref == nil {
		return fallback
	}
	return *ref
}

func ArrayOrEmpty[T any](ref []T) []T {
	if ref == nil {
		return make([]T, 0)
	}
	return ref
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func ContainsString(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}

	return false
}

func SumValues[K comparable](m map[K]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
