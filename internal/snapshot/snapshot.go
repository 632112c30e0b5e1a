// Package snapshot stores schema descriptions as YAML documents in an
// object store so later runs can diff against them.
package snapshot

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore"
	"github.com/koustreak/schemascope/internal/inspector"
	"github.com/koustreak/schemascope/internal/logger"
)

// ContentType is set on every stored snapshot.
const ContentType = "application/yaml"

const keyTimeFormat = "20060102T150405Z"

// Repository reads and writes snapshots under one bucket and key prefix.
type Repository struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
}

// New returns a Repository. prefix is a key prefix such as "snapshots/";
// a trailing slash is added when missing.
func New(store filestore.Store, bucket, prefix string, log *logger.Logger) *Repository {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Repository{store: store, bucket: bucket, prefix: prefix, log: log}
}

// Key returns the object key for a snapshot of name captured at t.
func (r *Repository) Key(name string, t time.Time) string {
	return r.prefix + name + "-" + t.UTC().Format(keyTimeFormat) + ".yaml"
}

// Save encodes d and uploads it under name. It returns the object key.
func (r *Repository) Save(ctx context.Context, name string, d *inspector.Description) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid snapshot name %q", name)
	}

	data, err := Encode(d)
	if err != nil {
		return "", err
	}

	if err := r.store.EnsureBucket(ctx, r.bucket); err != nil {
		return "", err
	}

	key := r.Key(name, d.CapturedAt)
	info, err := r.store.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), ContentType)
	if err != nil {
		return "", err
	}

	r.log.With().Str("bucket", r.bucket).Str("key", key).Int("bytes", len(data)).Logger().
		Info("snapshot saved")
	return info.Key, nil
}

// Load downloads and decodes the snapshot stored at key.
func (r *Repository) Load(ctx context.Context, key string) (*inspector.Description, error) {
	obj, err := r.store.GetObject(ctx, r.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read snapshot", err)
	}
	return Decode(data)
}

// List returns the snapshot keys under the prefix, oldest first. A non-empty
// name restricts the listing to that snapshot series.
func (r *Repository) List(ctx context.Context, name string) ([]string, error) {
	prefix := r.prefix
	if name != "" {
		prefix += name + "-"
	}

	objs, err := r.store.ListObjects(ctx, r.bucket, filestore.ListOptions{Prefix: prefix, Suffix: ".yaml"})
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	// Timestamps in keys sort lexically.
	slices.Sort(keys)
	return keys, nil
}

// Latest returns the key of the newest snapshot of name.
func (r *Repository) Latest(ctx context.Context, name string) (string, error) {
	keys, err := r.List(ctx, name)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", errs.Newf(errs.ErrKindNotFound, "no snapshot named %q", name)
	}
	return keys[len(keys)-1], nil
}

// URL returns a presigned download link for key valid for ttl.
func (r *Repository) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := r.store.StatObject(ctx, r.bucket, key); err != nil {
		return "", err
	}
	return r.store.PresignGetURL(ctx, r.bucket, key, ttl)
}

// Encode renders d as YAML.
func Encode(d *inspector.Description) ([]byte, error) {
	if d == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "nil description")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode snapshot", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a YAML snapshot.
func Decode(data []byte) (*inspector.Description, error) {
	var d inspector.Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to decode snapshot", err)
	}
	if d.Overview == nil {
		d.Overview = inspector.Overview{}
	}
	return &d, nil
}
