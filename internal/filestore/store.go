// Package filestore abstracts the object store framesync pulls dataset
// files from. A sync job typically points at a bucket of CSV exports;
// the engine reads one object, parses it, and merges it into a table.
// Nothing in framesync writes objects back.
package filestore

import (
	"context"
	"io"
	"time"
)

// Config carries the connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string // empty for MinIO
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string // full path within the bucket
	Size         int64  // bytes, -1 if unknown
	ContentType  string
	LastModified time.Time
}

// Object streams an object's content. Close it after reading.
type Object interface {
	io.ReadCloser

	Info() ObjectInfo
}

// Store is the read-only object-store capability. Providers map their
// native errors onto the errs kinds, so callers branch on IsNotFound
// versus IsConnectionFailed without knowing the backend.
type Store interface {
	// Get opens a streaming handle to bucket/key.
	Get(ctx context.Context, bucket, key string) (Object, error)

	// List returns the objects in bucket whose key starts with prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Ping verifies the endpoint is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error

	Close() error
}
