package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/dustin/go-humanize"
)

type (
	// DistributionReport is built fresh per run and never persisted.
	DistributionReport struct {
		Counts map[string]int64 `json:"counts"`
		Sample []table.Row      `json:"sample"`
	}

	Report struct {
		RunID          string `json:"run_id"`
		Table          string `json:"table"`
		Transform      string `json:"transform"`
		TotalRows      int64  `json:"total_rows"`
		BucketCount    int32  `json:"bucket_count"`
		KeyCardinality int32  `json:"key_cardinality"`
		// ExpectedRowsPerBucket is TotalRows / BucketCount, what a perfectly
		// uniform hash would give
		ExpectedRowsPerBucket float64 `json:"expected_rows_per_bucket"`

		KeyDistribution       DistributionReport `json:"key_distribution"`
		BucketCounts          map[int32]int64    `json:"bucket_counts"`
		PredictedBucketCounts map[int32]int64    `json:"predicted_bucket_counts"`
		EmptyBuckets          []int32            `json:"empty_buckets"`

		SampleKey    string        `json:"sample_key"`
		DataFiles    int64         `json:"data_files"`
		BytesWritten int64         `json:"bytes_written"`
		Duration     time.Duration `json:"duration_ns"`
	}
)

// EmptyBuckets lists bucket ids in [0, n) that received no rows.
func EmptyBuckets(counts map[int32]int64, n int32) []int32 {
	empty := make([]int32, 0)
	for b := int32(0); b < n; b++ {
		if counts[b] == 0 {
			empty = append(empty, b)
		}
	}
	return empty
}

func ExpectedPerBucket(total int64, n int32) float64 {
	if n <= 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// WriteText renders the human readable summary.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := func(format string, args ...any) {
		fmt.Fprintf(tw, format+"\n", args...)
	}

	p("table:\t%s", r.Table)
	p("transform:\t%s(partition_key)", r.Transform)
	p("total rows:\t%d", r.TotalRows)
	p("buckets:\t%d", r.BucketCount)
	p("expected rows per bucket:\t~%.1f", r.ExpectedRowsPerBucket)
	p("data files:\t%d (%s)", r.DataFiles, humanize.Bytes(uint64(r.BytesWritten)))
	p("duration:\t%s", r.Duration.Round(time.Millisecond))

	p("")
	p("partition_key\tcount")
	for _, k := range utils.SortedKeys(r.KeyDistribution.Counts) {
		p("%s\t%d", k, r.KeyDistribution.Counts[k])
	}

	p("")
	p("bucket\tcount\tpredicted")
	for b := int32(0); b < r.BucketCount; b++ {
		p("%d\t%d\t%d", b, r.BucketCounts[b], r.PredictedBucketCounts[b])
	}
	if len(r.EmptyBuckets) > 0 {
		ids := make([]string, 0, len(r.EmptyBuckets))
		for _, b := range r.EmptyBuckets {
			ids = append(ids, fmt.Sprint(b))
		}
		p("empty buckets:\t%s", strings.Join(ids, ", "))
	}

	p("")
	p("sample of %s (%d rows)", r.SampleKey, len(r.KeyDistribution.Sample))
	p("id\tname\tpartition_key")
	for _, row := range r.KeyDistribution.Sample {
		p("%d\t%s\t%s", row.ID, row.Name, row.PartitionKey)
	}

	return tw.Flush()
}
