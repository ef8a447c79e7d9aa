package runner

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/icebucket/config"
	"github.com/danthegoodman1/icebucket/datastore"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/report"
	"github.com/danthegoodman1/icebucket/s3_helper"
	"github.com/danthegoodman1/icebucket/warehouse"
	"github.com/rs/zerolog"
)

// OpenWarehouse builds the data and meta stores named in cfg. The caller owns
// the returned warehouse and must Shutdown it.
func OpenWarehouse(ctx context.Context, cfg config.StoreConfig) (*warehouse.Warehouse, error) {
	logger := zerolog.Ctx(ctx)

	var ds datastore.DataStore
	var err error
	switch cfg.DataStore {
	case "s3":
		ds, err = datastore.NewS3DataStore(s3_helper.Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		}, cfg.WarehouseDir)
	default:
		ds, err = datastore.NewDiskDataStore(cfg.WarehouseDir)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening %s datastore: %w", cfg.DataStore, err)
	}

	var ms metastore.MetaStore
	switch cfg.MetaStore {
	case "crdb":
		ms, err = metastore.NewCRDBMetaStore(ctx, cfg.CRDBDSN)
	case "redis":
		ms, err = metastore.NewRedisMetaStore(ctx, cfg.RedisAddr, cfg.RedisPassword, true)
	default:
		ms, err = metastore.NewBadgerMetaStore(cfg.BadgerDir)
	}
	if err != nil {
		ds.Shutdown(ctx)
		return nil, fmt.Errorf("error opening %s metastore: %w", cfg.MetaStore, err)
	}

	logger.Debug().Str("datastore", cfg.DataStore).Str("metastore", cfg.MetaStore).Msg("opened warehouse")
	return warehouse.Open(ms, ds), nil
}

// OpenPublisher returns nil when no AMQP url is configured.
func OpenPublisher(cfg config.Config) (report.Publisher, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	p, err := report.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("error in NewAMQPPublisher: %w", err)
	}
	return p, nil
}
