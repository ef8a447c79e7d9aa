package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/danthegoodman1/icebucket/partitioner"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/warehouse"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var (
	validate = validator.New()

	ErrInvalidConfigFile = errors.New("invalid config file")
)

type (
	// RunConfig is one verification run.
	RunConfig struct {
		TableName      string `yaml:"table_name" json:"table_name" validate:"required"`
		RowCount       int32  `yaml:"row_count" json:"row_count" validate:"gte=0"`
		KeyCardinality int32  `yaml:"key_cardinality" json:"key_cardinality" validate:"gt=0"`
		BucketCount    int32  `yaml:"bucket_count" json:"bucket_count" validate:"gt=0"`
		Tolerance      int32  `yaml:"tolerance" json:"tolerance" validate:"gte=0"`
		SampleKey      string `yaml:"sample_key" json:"sample_key" validate:"required"`
		SampleLimit    int32  `yaml:"sample_limit" json:"sample_limit" validate:"gt=0"`
		FormatVersion  string `yaml:"format_version" json:"format_version" validate:"oneof=1 2"`
		UpdateMode     string `yaml:"update_mode" json:"update_mode" validate:"oneof=copy-on-write merge-on-read"`
	}

	// StoreConfig selects the data and meta stores. An empty BadgerDir runs
	// badger in memory.
	StoreConfig struct {
		DataStore     string `yaml:"datastore" validate:"oneof=disk s3"`
		WarehouseDir  string `yaml:"warehouse_dir" validate:"required_if=DataStore disk"`
		MetaStore     string `yaml:"metastore" validate:"oneof=badger crdb redis"`
		BadgerDir     string `yaml:"badger_dir"`
		CRDBDSN       string `yaml:"crdb_dsn" validate:"required_if=MetaStore crdb"`
		RedisAddr     string `yaml:"redis_addr" validate:"required_if=MetaStore redis"`
		RedisPassword string `yaml:"redis_password"`
		S3Bucket      string `yaml:"s3_bucket" validate:"required_if=DataStore s3"`
		S3Endpoint    string `yaml:"s3_endpoint"`
		S3Region      string `yaml:"s3_region"`
	}

	Config struct {
		Run   RunConfig   `yaml:"run"`
		Store StoreConfig `yaml:"store"`

		AMQPURL      string `yaml:"amqp_url"`
		AMQPExchange string `yaml:"amqp_exchange"`
		HTTPPort     string `yaml:"http_port"`
	}
)

// FromEnv builds the config from the environment, applying the defaults of a
// 100 row, 10 key, 10 bucket run.
func FromEnv() (Config, error) {
	var errs []error
	intEnv := func(name, raw string, def int64) int32 {
		v, err := utils.ParseIntOrDefault(name, raw, def)
		if err != nil {
			errs = append(errs, err)
		}
		return int32(v)
	}

	cfg := Config{
		Run: RunConfig{
			TableName:      utils.TABLE_NAME,
			RowCount:       intEnv("ROW_COUNT", utils.ROW_COUNT, 100),
			KeyCardinality: intEnv("KEY_CARDINALITY", utils.KEY_CARDINALITY, 10),
			BucketCount:    intEnv("BUCKET_COUNT", utils.BUCKET_COUNT, 10),
			Tolerance:      intEnv("TOLERANCE", utils.TOLERANCE, 0),
			SampleKey:      utils.SAMPLE_KEY,
			SampleLimit:    intEnv("SAMPLE_LIMIT", utils.SAMPLE_LIMIT, 5),
			FormatVersion:  utils.FORMAT_VERSION,
			UpdateMode:     utils.UPDATE_MODE,
		},
		Store: StoreConfig{
			DataStore:     utils.DATASTORE,
			WarehouseDir:  utils.WAREHOUSE_DIR,
			MetaStore:     utils.METASTORE,
			BadgerDir:     utils.BADGER_DIR,
			CRDBDSN:       utils.CRDB_DSN,
			RedisAddr:     utils.REDIS_ADDR,
			RedisPassword: utils.REDIS_PASSWORD,
			S3Bucket:      utils.S3_BUCKET_NAME,
			S3Endpoint:    utils.S3_ENDPOINT,
			S3Region:      utils.AWS_DEFAULT_REGION,
		},
		AMQPURL:      utils.AMQP_URL,
		AMQPExchange: utils.AMQP_EXCHANGE,
		HTTPPort:     utils.HTTP_PORT,
	}
	return cfg, errors.Join(errs...)
}

// LoadFile overlays the yaml file at path onto cfg. Keys missing from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error in os.ReadFile: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return utils.NewConfigError(fmt.Errorf("%w: %w", ErrInvalidConfigFile, err), "config file %s", path)
	}
	return nil
}

// Load reads the environment, then the optional config file, and validates
// the result.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := c.Run.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c.Store); err != nil {
		return utils.NewConfigError(err, "invalid store config")
	}
	return nil
}

// Validate checks the run parameters. The bucket count is checked first so an
// invalid count always wraps bucket.ErrInvalidBucketCount.
func (c RunConfig) Validate() error {
	if err := c.Spec().Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return utils.NewConfigError(err, "invalid run config")
	}
	return warehouse.ValidateTableName(c.TableName)
}

func (c RunConfig) Spec() partitioner.BucketSpec {
	return partitioner.NewBucketSpec(c.BucketCount)
}

// Properties are the table properties the run creates the table with.
func (c RunConfig) Properties() map[string]string {
	return map[string]string{
		warehouse.PropFormatVersion: c.FormatVersion,
		warehouse.PropUpdateMode:    c.UpdateMode,
	}
}
