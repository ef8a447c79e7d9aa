package datastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/danthegoodman1/icebucket/s3_helper"
	"github.com/danthegoodman1/icebucket/utils"
)

type (
	S3DataStore struct {
		sess   *session.Session
		bucket string
		prefix string
	}
)

func NewS3DataStore(cfg s3_helper.Config, prefix string) (*S3DataStore, error) {
	if cfg.Bucket == "" {
		return nil, utils.NewConfigError(nil, "S3_BUCKET_NAME is required for the s3 datastore")
	}
	sess, err := s3_helper.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("error in s3_helper.NewSession: %w", err)
	}
	return &S3DataStore{sess: sess, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (s *S3DataStore) WriteFile(ctx context.Context, key string, b []byte) error {
	_, err := s3_helper.WriteBytesToS3(ctx, s.sess, s.bucket, path.Join(s.prefix, key), bytes.NewReader(b), utils.Ptr("application/vnd.apache.parquet"))
	if err != nil {
		return fmt.Errorf("error in WriteBytesToS3: %w", err)
	}
	return nil
}

func (s *S3DataStore) ReadFile(ctx context.Context, key string) ([]byte, error) {
	b, err := s3_helper.ReadBytesFromS3(ctx, s.sess, s.bucket, path.Join(s.prefix, key))
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("error in ReadBytesFromS3: %w", err)
	}
	return b, nil
}

func (s *S3DataStore) Shutdown(context.Context) error {
	return nil
}
