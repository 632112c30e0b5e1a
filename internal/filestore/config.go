package filestore

// DefaultBucket holds snapshots when the configuration names no bucket.
const DefaultBucket = "schemascope"

// Config locates an S3-compatible object store.
type Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string // empty for MinIO
	Bucket    string
}

// DefaultConfig returns a plain-HTTP config for a local MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    DefaultBucket,
	}
}
