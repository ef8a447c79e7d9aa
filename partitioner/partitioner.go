package partitioner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danthegoodman1/icebucket/bucket"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
)

type (
	// PartitionPlan is one partition field: apply Func to the row with Args,
	// and name the result As in the partition path.
	PartitionPlan struct {
		Func string   `json:"func" yaml:"func"`
		Args []string `json:"args" yaml:"args"`
		As   string   `json:"as" yaml:"as"`
	}

	PartitionFunc func(row table.Row, args []string) (string, error)

	// BucketSpec is fixed for the lifetime of a table.
	BucketSpec struct {
		BucketCount  int32  `json:"bucket_count" yaml:"bucket_count"`
		SourceColumn string `json:"source_column" yaml:"source_column"`
	}

	// Transform is a parsed transform string such as bucket[10].
	Transform struct {
		Name  string
		Param int32
	}
)

const (
	TransformIdentity = "identity"
	TransformBucket   = "bucket"
	TransformTruncate = "truncate"
	TransformVoid     = "void"

	NullPartitionValue = "null"
)

var (
	Functions = make(map[string]PartitionFunc)

	ErrFuncNotFound = errors.New("partition function not found")

	ErrMissingArgs       = errors.New("missing args")
	ErrMissingColumns    = errors.New("missing one or more columns specified in args")
	ErrInvalidColumnType = errors.New("invalid column type")
	ErrInvalidTransform  = errors.New("invalid transform")
	ErrSchemaMismatch    = errors.New("source column not in table schema")
	ErrBadPartitionPath  = errors.New("bad partition path")
)

func init() {
	RegisterFunctions()
}

func RegisterFunctions() {
	Functions[TransformIdentity] = func(row table.Row, args []string) (string, error) {
		val, err := columnValue(row, args)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(val), nil
	}
	Functions[TransformBucket] = func(row table.Row, args []string) (string, error) {
		val, err := columnValue(row, args)
		if err != nil {
			return "", err
		}
		n, err := intArg(args, 1)
		if err != nil {
			return "", err
		}
		b, err := bucket.BucketValue(val, n)
		if err != nil {
			return "", fmt.Errorf("error in bucket.BucketValue: %w", err)
		}
		return strconv.Itoa(int(b)), nil
	}
	Functions[TransformTruncate] = func(row table.Row, args []string) (string, error) {
		val, err := columnValue(row, args)
		if err != nil {
			return "", err
		}
		w, err := intArg(args, 1)
		if err != nil {
			return "", err
		}
		return truncate(val, w)
	}
	Functions[TransformVoid] = func(table.Row, []string) (string, error) {
		return NullPartitionValue, nil
	}
}

// GetRowPartition returns the partition path for a row, e.g. partition_key_bucket=4.
func GetRowPartition(row table.Row, partitioners []PartitionPlan) (string, error) {
	var finalParts []string
	for _, partFunc := range partitioners {
		f, ok := Functions[partFunc.Func]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrFuncNotFound, partFunc.Func)
		}

		s, err := f(row, partFunc.Args)
		if err != nil {
			return "", fmt.Errorf("error processing partition function %s: %w", partFunc.Func, err)
		}
		finalParts = append(finalParts, fmt.Sprintf("%s=%s", partFunc.As, s))
	}
	return strings.Join(finalParts, "/"), nil
}

// ParsePartitionPath splits a partition path back into field -> value.
func ParsePartitionPath(path string) (map[string]string, error) {
	fields := make(map[string]string)
	if path == "" {
		return fields, nil
	}
	for _, seg := range strings.Split(path, "/") {
		name, val, ok := strings.Cut(seg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadPartitionPath, path)
		}
		fields[name] = val
	}
	return fields, nil
}

// ParseTransform parses identity, void, bucket[N] and truncate[W].
func ParseTransform(s string) (Transform, error) {
	s = strings.TrimSpace(s)
	switch s {
	case TransformIdentity, TransformVoid:
		return Transform{Name: s}, nil
	}
	name, rest, ok := strings.Cut(s, "[")
	if !ok || !strings.HasSuffix(rest, "]") || (name != TransformBucket && name != TransformTruncate) {
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidTransform, s)
	}
	param, err := strconv.ParseInt(strings.TrimSuffix(rest, "]"), 10, 32)
	if err != nil || param <= 0 {
		return Transform{}, utils.NewConfigError(ErrInvalidTransform, "%q needs a positive parameter", s)
	}
	return Transform{Name: name, Param: int32(param)}, nil
}

func (t Transform) String() string {
	if t.Param == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s[%d]", t.Name, t.Param)
}

// Plan builds the partition plan applying t to sourceColumn, named the way
// Iceberg names default partition fields.
func (t Transform) Plan(sourceColumn string) PartitionPlan {
	p := PartitionPlan{Func: t.Name, Args: []string{sourceColumn}, As: sourceColumn}
	if t.Param != 0 {
		p.Args = append(p.Args, strconv.Itoa(int(t.Param)))
	}
	switch t.Name {
	case TransformBucket:
		p.As = sourceColumn + "_bucket"
	case TransformTruncate:
		p.As = sourceColumn + "_trunc"
	case TransformVoid:
		p.As = sourceColumn + "_null"
	}
	return p
}

func columnValue(row table.Row, args []string) (any, error) {
	if len(args) == 0 {
		return nil, ErrMissingArgs
	}
	val := row.Value(args[0])
	if val == nil {
		return nil, ErrMissingColumns
	}
	return val, nil
}

func intArg(args []string, i int) (int32, error) {
	if len(args) <= i {
		return 0, ErrMissingArgs
	}
	v, err := strconv.ParseInt(args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("error in strconv.ParseInt for arg %q: %w", args[i], err)
	}
	return int32(v), nil
}

func truncate(val any, w int32) (string, error) {
	if w <= 0 {
		return "", utils.NewConfigError(ErrInvalidTransform, "truncate width must be > 0, got %d", w)
	}
	switch v := val.(type) {
	case string:
		if utf8.RuneCountInString(v) <= int(w) {
			return v, nil
		}
		return string([]rune(v)[:w]), nil
	case int64:
		W := int64(w)
		return strconv.FormatInt(v-(((v%W)+W)%W), 10), nil
	default:
		return "", ErrInvalidColumnType
	}
}
