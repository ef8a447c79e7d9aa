package part

import (
	"path"
	"time"
)

type (
	// DataFile is the metastore record of one parquet file holding the rows of
	// a single partition.
	DataFile struct {
		ID    string
		Table string
		// Partition is the partition path, e.g. partition_key_bucket=3
		Partition string
		FileName  string
		Rows      int64
		Bytes     int64
		// Enabled is false once the table is replaced
		Enabled   bool
		CreatedAt time.Time
	}
)

// Key is the object key of the file relative to the warehouse root.
func (f DataFile) Key() string {
	return FileKey(f.Table, f.Partition, f.FileName)
}

func FileKey(table, partition, fileName string) string {
	return path.Join(table, "data", partition, fileName)
}
