package filestore

import (
	"io"
	"strings"
	"time"
)

// ObjectInfo is the metadata a store reports for one object.
type ObjectInfo struct {
	Key          string
	Size         int64 // -1 when unknown
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Object streams an object's body. Close it when done.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}

// ListOptions narrows ListObjects. Listing is flat: keys are full paths
// such as "snapshots/shop-20260101T120000Z.yaml" and directory markers are
// never returned.
type ListOptions struct {
	Prefix     string
	Suffix     string // e.g. ".yaml"
	StartAfter string // resume after this key
	MaxKeys    int    // 0 means no cap
}

// Match reports whether key passes the prefix, suffix and cursor filters.
func (o ListOptions) Match(key string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	return strings.HasPrefix(key, o.Prefix) &&
		strings.HasSuffix(key, o.Suffix) &&
		key > o.StartAfter
}
