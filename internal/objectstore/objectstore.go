// Package objectstore archives billing artifacts in S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	minioCreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned by New when credentials are missing.
var ErrNotConfigured = errors.New("object storage credentials are not configured")

const defaultTimeout = 15 * time.Second

type Config struct {
	Endpoint  string
	Bucket    string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	cfg   Config
	minio *minio.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object storage bucket is not configured")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  minioCreds.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage client: %w", err)
	}
	return &Client{cfg: cfg, minio: mc}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	exists, err := c.minio.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.minio.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.cfg.Bucket, err)
	}
	return nil
}

// Put stores data under key in the configured bucket.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.minio.PutObject(ctx, c.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c.cfg.Bucket, key, err)
	}
	return nil
}
