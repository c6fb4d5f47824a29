package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings of an S3-compatible endpoint.
// Supabase Storage exposes one at <project>.supabase.co/storage/v1/s3.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Store reads objects through minio-go.  The client is safe for
// concurrent use and is meant to be built once at startup.
type S3Store struct {
	client *minio.Client
}

// NewS3Store constructs the client.  No request is made until the first fetch.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Store{client: client}, nil
}

// FetchBytes reads the whole object.  GetObject is lazy, so a missing key
// only surfaces on the first read.
func (s *S3Store) FetchBytes(ctx context.Context, bucket, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return data, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
