package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when no endpoint was configured.
	ErrNotConfigured = errors.New("storage not configured")
	// ErrObjectNotFound is returned for a missing key.
	ErrObjectNotFound = errors.New("object not found")
)

// Object is a readable blob with its stored metadata.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Client wraps a MinIO bucket behind a circuit breaker.
type Client struct {
	minio   *minio.Client
	bucket  string
	breaker *gobreaker.CircuitBreaker[interface{}]
	log     *zap.Logger
}

// New 初始化MinIO客户端
func New(cfg config.MinIOConfig, log *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	c := &Client{minio: mc, bucket: cfg.Bucket, log: log}
	c.breaker = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "blobstore",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrObjectNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Blob store circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c, nil
}

// EnsureBucket creates the bucket when missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minio.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.minio.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	c.log.Info("Created blob bucket", zap.String("bucket", c.bucket))
	return nil
}

// Put stores size bytes from r under key.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.minio.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
	})
	metrics.ObserveBlob("put", err)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get opens the object stored under key. The caller closes Body.
func (c *Client) Get(ctx context.Context, key string) (*Object, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		obj, err := c.minio.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		info, err := obj.Stat()
		if err != nil {
			obj.Close()
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				return nil, ErrObjectNotFound
			}
			return nil, err
		}
		return &Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
	})
	metrics.ObserveBlob("get", err)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return res.(*Object), nil
}

// Remove deletes the object under key.
func (c *Client) Remove(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.minio.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	})
	metrics.ObserveBlob("remove", err)
	if err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.minio.BucketExists(ctx, c.bucket)
	return err
}
