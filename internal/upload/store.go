package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
)

// Store persists an uploaded file under a category and returns its
// public location.
type Store interface {
	Save(ctx context.Context, category, filename string, body io.Reader, size int64, contentType string) (string, error)
	Name() string
}

// CheckedStore is a Store whose backend can be probed by health checks.
type CheckedStore interface {
	Store
	Check(ctx context.Context) error
}

// New returns an S3 store when a bucket is configured, otherwise a local
// store rooted at cfg.Dir.
func New(ctx context.Context, cfg config.UploadsConfig) (CheckedStore, error) {
	if cfg.S3Bucket != "" {
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	}
	return NewLocalStore(cfg.Dir, cfg.PublicPrefix), nil
}

// LocalStore writes uploads to <Root>/<category>/<filename>.
type LocalStore struct {
	Root         string
	PublicPrefix string
}

// NewLocalStore creates a disk-backed store rooted at dir and served
// under publicPrefix.
func NewLocalStore(dir, publicPrefix string) *LocalStore {
	return &LocalStore{Root: dir, PublicPrefix: publicPrefix}
}

func (s *LocalStore) Name() string { return "local" }

// Check verifies the upload root exists or can be created.
func (s *LocalStore) Check(context.Context) error {
	return os.MkdirAll(s.Root, 0o755)
}

// Save creates the category directory if needed; MkdirAll is a no-op when
// another request created it first.
func (s *LocalStore) Save(_ context.Context, category, filename string, body io.Reader, _ int64, _ string) (string, error) {
	dir := filepath.Join(s.Root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path.Join(s.PublicPrefix, category, filename), nil
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store writes uploads to s3://<bucket>/uploads/<category>/<filename>.
type S3Store struct {
	client s3API
	bucket string
	region string
}

// NewS3Store creates an S3-backed store using the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: bucket, region: region}, nil
}

func (s *S3Store) Name() string { return "s3" }

// Check verifies the bucket is reachable.
func (s *S3Store) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// ObjectKey returns the bucket key for an upload.
func ObjectKey(category, filename string) string {
	return path.Join("uploads", category, filename)
}

func (s *S3Store) Save(ctx context.Context, category, filename string, body io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(category, filename)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
