package storage

import (
	"context"
	"io"
	"time"
)

// Service stores user avatar objects in remote object storage.
type Service interface {
	PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	DeleteObject(ctx context.Context, bucket, key string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
