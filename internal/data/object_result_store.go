package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/domain/model"
)

// ObjectResultStoreOptions configures an S3-compatible result store.
type ObjectResultStoreOptions struct {
	Endpoint        string
	Bucket          string
	Prefix          string
	AccessKey       string
	SecretAccessKey string
	UseSSL          bool
	// CreateBucket creates the bucket at startup when it does not exist.
	CreateBucket bool
}

// ObjectResultStore stores each artifact as <prefix><id>.json in an S3-compatible bucket.
type ObjectResultStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectResultStore connects to the object store and verifies the bucket.
func NewObjectResultStore(ctx context.Context, opts ObjectResultStoreOptions) (*ObjectResultStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, ErrResultStoreNotConfigured
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if !opts.CreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", opts.Bucket)
		}
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &ObjectResultStore{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *ObjectResultStore) objectName(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10) + artifactExt
}

// Write uploads the artifact for id.
func (s *ObjectResultStore) Write(ctx context.Context, id int64, artifact []byte) error {
	if err := validateJobID(id); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(id),
		bytes.NewReader(artifact), int64(len(artifact)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put result %d: %w", id, err)
	}
	return nil
}

// Read downloads the artifact for id.
func (s *ObjectResultStore) Read(ctx context.Context, id int64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(id, err)
	}
	defer func() { _ = obj.Close() }()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(id, err)
	}
	return b, nil
}

func (s *ObjectResultStore) mapErr(id int64, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return model.ErrResultNotFound
	}
	return fmt.Errorf("get result %d: %w", id, err)
}

// LastJobID lists the objects under the prefix and returns the highest job id among them.
func (s *ObjectResultStore) LastJobID(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var last int64
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list results: %w", obj.Err)
		}
		if id, ok := parseJobID(strings.TrimPrefix(obj.Key, s.prefix), artifactExt); ok {
			last = max(last, id)
		}
	}
	return last, nil
}

// Health checks that the bucket is still reachable.
func (s *ObjectResultStore) Health(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	return nil
}

var (
	_ core.ResultStore   = (*ObjectResultStore)(nil)
	_ core.ResultCatalog = (*ObjectResultStore)(nil)
	_ core.HealthChecker = (*ObjectResultStore)(nil)
)
