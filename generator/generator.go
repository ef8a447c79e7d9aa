package generator

import (
	"errors"
	"fmt"

	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
)

var (
	ErrInvalidRowCount       = errors.New("row count must be >= 0")
	ErrInvalidKeyCardinality = errors.New("key cardinality must be > 0")
)

// Generate produces count rows with ids 0..count-1. Row i gets the name
// user_i and the partition key partition_(i % keyCardinality). The output only
// depends on the arguments, and every call returns a fresh slice.
func Generate(count, keyCardinality int32) ([]table.Row, error) {
	if err := validate(count, keyCardinality); err != nil {
		return nil, err
	}
	rows := make([]table.Row, 0, count)
	for i := int32(0); i < count; i++ {
		rows = append(rows, table.Row{
			ID:           int64(i),
			Name:         fmt.Sprintf("user_%d", i),
			PartitionKey: KeyLabel(i % keyCardinality),
		})
	}
	return rows, nil
}

func KeyLabel(i int32) string {
	return fmt.Sprintf("partition_%d", i)
}

// ExpectedKeyCounts returns the per key row counts Generate produces. Keys
// that receive no rows (count < keyCardinality) are left out.
func ExpectedKeyCounts(count, keyCardinality int32) (map[string]int64, error) {
	if err := validate(count, keyCardinality); err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for k := int32(0); k < keyCardinality && k < count; k++ {
		n := int64(count / keyCardinality)
		if k < count%keyCardinality {
			n++
		}
		counts[KeyLabel(k)] = n
	}
	return counts, nil
}

func validate(count, keyCardinality int32) error {
	if count < 0 {
		return utils.NewConfigError(ErrInvalidRowCount, "got %d", count)
	}
	if keyCardinality <= 0 {
		return utils.NewConfigError(ErrInvalidKeyCardinality, "got %d", keyCardinality)
	}
	return nil
}
