// Package filestore is the object-store contract behind schema snapshots.
// The only implementation is filestore/minio, which also speaks to any
// S3-compatible endpoint.
//
//	store, err := minio.New(ctx, filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin"))
//	if err != nil { ... }
//	defer store.Close()
//	keys, err := store.ListObjects(ctx, "schemascope", filestore.ListOptions{Prefix: "snapshots/", Suffix: ".yaml"})
package filestore

import (
	"context"
	"io"
	"time"
)

// Store reads and writes objects. Errors are *errs.Error; a missing bucket
// or key is ErrKindNotFound.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// EnsureBucket creates bucket unless it already exists.
	EnsureBucket(ctx context.Context, bucket string) error

	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens the object for reading; the caller closes it.
	GetObject(ctx context.Context, bucket, key string) (Object, error)
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PutObject uploads size bytes from r, or streams to EOF when size is -1.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// PresignGetURL returns a credential-free download link valid for ttl.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
