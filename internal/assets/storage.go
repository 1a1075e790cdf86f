// Package assets serves the licensed plugin build from an S3-compatible
// bucket.
package assets

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rslab/internal/config"
)

// Storage fetches plugin objects for authenticated downloads.
type Storage interface {
	// FetchPlugin returns the plugin object stream, its size, and its
	// content type. The caller closes the reader.
	FetchPlugin(ctx context.Context) (io.ReadCloser, int64, string, error)
}

// BucketStorage is the production Storage over an S3-compatible endpoint
// (Cloudflare R2, MinIO, S3).
type BucketStorage struct {
	client    *minio.Client
	bucket    string
	pluginKey string
}

// NewBucketStorage connects to the configured endpoint.
func NewBucketStorage(cfg config.AssetsConfig) (*BucketStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect asset storage: %w", err)
	}
	return &BucketStorage{client: client, bucket: cfg.Bucket, pluginKey: cfg.PluginKey}, nil
}

func (b *BucketStorage) FetchPlugin(ctx context.Context) (io.ReadCloser, int64, string, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.pluginKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", fmt.Errorf("fetch plugin object: %w", err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, "", fmt.Errorf("stat plugin object: %w", err)
	}
	contentType := stat.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return obj, stat.Size, contentType, nil
}
