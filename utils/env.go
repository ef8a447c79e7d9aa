package utils

import "os"

var (
	TABLE_NAME      = GetEnvOrDefault("TABLE_NAME", "partition_bucket_test")
	ROW_COUNT       = os.Getenv("ROW_COUNT")
	KEY_CARDINALITY = os.Getenv("KEY_CARDINALITY")
	BUCKET_COUNT    = os.Getenv("BUCKET_COUNT")
	TOLERANCE       = os.Getenv("TOLERANCE")
	SAMPLE_KEY      = GetEnvOrDefault("SAMPLE_KEY", "partition_0")
	SAMPLE_LIMIT    = os.Getenv("SAMPLE_LIMIT")
	FORMAT_VERSION  = GetEnvOrDefault("FORMAT_VERSION", "2")
	UPDATE_MODE     = GetEnvOrDefault("UPDATE_MODE", "merge-on-read")

	DATASTORE     = GetEnvOrDefault("DATASTORE", "disk")
	WAREHOUSE_DIR = GetEnvOrDefault("WAREHOUSE_DIR", "data/persistent")
	METASTORE     = GetEnvOrDefault("METASTORE", "badger")
	BADGER_DIR    = GetEnvOrDefault("BADGER_DIR", "badger")

	CRDB_DSN = os.Getenv("CRDB_DSN")

	REDIS_ADDR     = os.Getenv("REDIS_ADDR")
	REDIS_PASSWORD = os.Getenv("REDIS_PASSWORD")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")

	AMQP_URL      = os.Getenv("AMQP_URL")
	AMQP_EXCHANGE = GetEnvOrDefault("AMQP_EXCHANGE", "icebucket.reports")

	HTTP_PORT = GetEnvOrDefault("HTTP_PORT", "8080")
)
