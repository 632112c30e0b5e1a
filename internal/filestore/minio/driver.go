// Package minio implements filestore.Store with minio-go, against MinIO or
// any S3-compatible endpoint.
//
//	store, err := minio.New(ctx, filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin"))
//	if err != nil { ... }
//	defer store.Close()
//	info, err := store.PutObject(ctx, "schemascope", "snapshots/a.yaml", r, n, "application/yaml")
package minio

import (
	"context"
	"io"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore"
)

// Driver is safe for concurrent use.
type Driver struct {
	client *miniogo.Client
	region string
	bucket string
}

// New builds a client for cfg and pings the endpoint.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "object store endpoint is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to create minio client", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = filestore.DefaultBucket
	}
	d := &Driver{client: client, region: cfg.Region, bucket: bucket}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping checks reachability and credentials with a HEAD on the configured
// bucket, which needs no account-wide listing permission. A missing bucket
// still counts as reachable; EnsureBucket creates it on first save.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.BucketExists(ctx, d.bucket); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op: the client keeps no session state.
func (d *Driver) Close() error { return nil }

func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := d.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if exists {
		return nil
	}

	err = d.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{Region: d.region})
	// Lost a creation race with another writer.
	if err != nil && miniogo.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		return nil
	}
	if err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

// ListObjects walks bucket recursively and keeps the keys opts matches.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	// Cancelling stops the listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:     opts.Prefix,
		StartAfter: opts.StartAfter,
		Recursive:  true,
	})

	var results []filestore.ObjectInfo
	for obj := range objects {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}
		if !opts.Match(obj.Key) {
			continue
		}
		results = append(results, *toInfo(obj))
		if opts.MaxKeys > 0 && len(results) == opts.MaxKeys {
			break
		}
	}
	return results, nil
}

// GetObject stats the object eagerly so a missing key fails here rather
// than on the first Read.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError(err, "failed to get object")
	}
	return &object{ReadCloser: obj, info: toInfo(stat)}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	return toInfo(stat), nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}
	return &filestore.ObjectInfo{
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  contentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to presign object URL")
	}
	return u.String(), nil
}

func toInfo(o miniogo.ObjectInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		ETag:         o.ETag,
		LastModified: o.LastModified,
	}
}

// object pairs a GetObject stream with the metadata read at open time.
type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
