package filestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListOptions_Match(t *testing.T) {
	opts := ListOptions{Prefix: "snapshots/shop-", Suffix: ".yaml", StartAfter: "snapshots/shop-20260101T000000Z.yaml"}

	tests := []struct {
		key  string
		want bool
	}{
		{"snapshots/shop-20260102T000000Z.yaml", true},
		{"snapshots/shop-20260101T000000Z.yaml", false},
		{"snapshots/shop-20251231T000000Z.yaml", false},
		{"snapshots/shop-20260102T000000Z.json", false},
		{"snapshots/other-20260102T000000Z.yaml", false},
		{"snapshots/shop-2026/", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, opts.Match(tt.key), tt.key)
	}

	assert.True(t, ListOptions{}.Match("anything"))
	assert.False(t, ListOptions{}.Match("dir/"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:9000", "key", "secret")
	assert.Equal(t, DefaultBucket, cfg.Bucket)
	assert.False(t, cfg.UseSSL)
}
