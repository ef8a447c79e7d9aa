package table

import "github.com/danthegoodman1/icebucket/utils"

const (
	ColID           = "id"
	ColName         = "name"
	ColPartitionKey = "partition_key"
)

type (
	// Row is immutable once generated.
	Row struct {
		ID           int64  `json:"id" parquet:"name=id, type=INT64"`
		Name         string `json:"name" parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
		PartitionKey string `json:"partition_key" parquet:"name=partition_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	}

	Column struct {
		Name string `json:"name" yaml:"name"`
		// int64 or string
		Type string `json:"type" yaml:"type"`
	}

	Schema []Column
)

// RowSchema is the only schema the table layer accepts.
var RowSchema = Schema{
	{Name: ColID, Type: "int64"},
	{Name: ColName, Type: "string"},
	{Name: ColPartitionKey, Type: "string"},
}

func (s Schema) ColumnNames() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

func (s Schema) HasColumn(name string) bool {
	return utils.ContainsString(s.ColumnNames(), name)
}

// Matches reports whether both schemas have the same columns in the same order.
func (s Schema) Matches(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Value returns the value of a column by name, or nil for an unknown column.
func (r Row) Value(col string) any {
	switch col {
	case ColID:
		return r.ID
	case ColName:
		return r.Name
	case ColPartitionKey:
		return r.PartitionKey
	default:
		return nil
	}
}
