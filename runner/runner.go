// Package runner drives one end to end verification: generate rows, write
// them through a bucket partitioned table, read them back and compare.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danthegoodman1/icebucket/config"
	"github.com/danthegoodman1/icebucket/generator"
	"github.com/danthegoodman1/icebucket/gologger"
	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/report"
	"github.com/danthegoodman1/icebucket/table"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/verifier"
	"github.com/danthegoodman1/icebucket/warehouse"
	"github.com/rs/zerolog"
)

const (
	ByPartitionKey = "partition_key"
	ByBucket       = "bucket"
)

// Run executes every step against collab and stops at the first error.
// Config errors are returned before the table is touched, collaborator
// errors are returned unchanged.
func Run(ctx context.Context, cfg config.RunConfig, collab warehouse.Collaborator) (*report.Report, error) {
	start := time.Now()
	runID := utils.GenKSortedID("run_")
	ctx = context.WithValue(ctx, gologger.RunIDKey, runID)
	logger := zerolog.Ctx(ctx).With().Str("runID", runID).Str("table", cfg.TableName).Logger()
	ctx = logger.WithContext(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec := cfg.Spec()

	rows, err := generator.Generate(cfg.RowCount, cfg.KeyCardinality)
	if err != nil {
		return nil, fmt.Errorf("error in generator.Generate: %w", err)
	}
	expectedKeys, err := generator.ExpectedKeyCounts(cfg.RowCount, cfg.KeyCardinality)
	if err != nil {
		return nil, fmt.Errorf("error in generator.ExpectedKeyCounts: %w", err)
	}
	predicted, err := partitioner.PredictBucketCounts(rows, spec)
	if err != nil {
		return nil, fmt.Errorf("error in PredictBucketCounts: %w", err)
	}

	logger.Debug().Int32("buckets", spec.BucketCount).Msg("creating table")
	err = collab.CreateTable(ctx, warehouse.TableDef{
		Name:       cfg.TableName,
		Schema:     table.RowSchema,
		Spec:       spec,
		Properties: cfg.Properties(),
	})
	if err != nil {
		return nil, err
	}

	stats, err := collab.InsertRows(ctx, cfg.TableName, rows)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int64("rows", stats.NumRows).Int64("files", stats.NumFiles).Msg("inserted rows")

	keyCounts, err := collab.CountByPartitionKey(ctx, cfg.TableName)
	if err != nil {
		return nil, err
	}
	if err := verifier.Verify(ByPartitionKey, keyCounts, expectedKeys, cfg.Tolerance); err != nil {
		return nil, err
	}

	bucketCounts, err := collab.CountByBucket(ctx, cfg.TableName)
	if err != nil {
		return nil, err
	}
	if err := verifier.Verify(ByBucket, bucketCounts, predicted, cfg.Tolerance); err != nil {
		return nil, err
	}

	layout, err := verifier.VerifyLayout(ctx, collab, cfg.TableName)
	if err != nil {
		return nil, fmt.Errorf("error in VerifyLayout: %w", err)
	}

	sample, err := verifier.Sample(ctx, collab, cfg.TableName, cfg.SampleKey, cfg.SampleLimit)
	if err != nil {
		return nil, err
	}

	total := utils.SumValues(keyCounts)
	r := &report.Report{
		RunID:                 runID,
		Table:                 cfg.TableName,
		Transform:             spec.Transform().String(),
		TotalRows:             total,
		BucketCount:           spec.BucketCount,
		KeyCardinality:        cfg.KeyCardinality,
		ExpectedRowsPerBucket: report.ExpectedPerBucket(total, spec.BucketCount),
		KeyDistribution: report.DistributionReport{
			Counts: keyCounts,
			Sample: utils.ArrayOrEmpty(sample),
		},
		BucketCounts:          bucketCounts,
		PredictedBucketCounts: predicted,
		EmptyBuckets:          report.EmptyBuckets(bucketCounts, spec.BucketCount),
		SampleKey:             cfg.SampleKey,
		DataFiles:             int64(layout.Files),
		BytesWritten:          stats.BytesWritten,
		Duration:              time.Since(start),
	}
	logger.Info().Int64("rows", total).Int("emptyBuckets", len(r.EmptyBuckets)).Dur("duration", r.Duration).Msg("run verified")
	return r, nil
}

// Execute opens the configured warehouse, runs, publishes the report when a
// publisher is given and always shuts the warehouse down.
func Execute(ctx context.Context, cfg config.Config, pub report.Publisher) (r *report.Report, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wh, err := OpenWarehouse(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer func() {
		if shutdownErr := wh.Shutdown(context.Background()); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("error shutting down warehouse: %w", shutdownErr))
		}
	}()

	r, err = Run(ctx, cfg.Run, wh)
	if err != nil {
		return nil, err
	}
	if pub != nil {
		if err := pub.Publish(ctx, r); err != nil {
			return r, fmt.Errorf("error in Publish: %w", err)
		}
	}
	return r, nil
}
