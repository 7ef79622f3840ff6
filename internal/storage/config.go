package storage

import "strings"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// ForBucket returns a copy of the config pointing at bucket.
func (c MinIOConfig) ForBucket(bucket string) *MinIOConfig {
	c.Bucket = bucket
	return &c
}

// S3BucketName maps a logical bucket name such as "wiki_info" onto the
// S3 naming rules (lowercase, no underscores).
func S3BucketName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}
