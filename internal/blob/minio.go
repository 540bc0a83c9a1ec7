package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dropcode/dropcode/internal/config"
	"github.com/dropcode/dropcode/internal/domain"
	"github.com/dropcode/dropcode/pkg/log"
)

// MinioStore keeps blobs in an S3-compatible object store. Selected with
// storage.driver = "s3".
type MinioStore struct {
	client  *minio.Client
	bucket  string
	maxSize int64
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(cfg config.MinIOConfig, maxSize int64) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
		log.Infof("Created bucket %q", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, maxSize: maxSize}, nil
}

// capReader fails the stream once more than max bytes passed through, so an
// abusive upload is aborted instead of buffered.
type capReader struct {
	r        io.Reader
	max      int64
	read     int64
	exceeded bool
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		c.exceeded = true
		return n, domain.ErrPayloadTooLarge
	}
	return n, err
}

func (s *MinioStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	cr := &capReader{r: r, max: s.maxSize}

	info, err := s.client.PutObject(ctx, s.bucket, id, cr, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		// An aborted multipart upload can leave the object behind.
		if rerr := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); rerr != nil {
			log.Warnf("Failed to clean up partial object %s: %v", id, rerr)
		}
		if cr.exceeded {
			return 0, domain.ErrPayloadTooLarge
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return info.Size, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}

	// GetObject is lazy; stat now so a missing blob surfaces here and not
	// halfway through the response.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	return nil
}
