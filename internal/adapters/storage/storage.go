// Package storage archives generated quotation PDFs in S3-compatible object
// storage. Archiving is optional and never blocks the quote response.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the subset of object storage the archive needs.
type ObjectStore interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// PutObject stores size bytes from reader under key.
	PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error

	// ValidateUpload checks content type and size before an upload.
	ValidateUpload(contentType string, sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketQuotePDFs() string
	IsMinIOEnabled() bool
}
