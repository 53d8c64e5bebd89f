// Package objectstore abstracts durable object storage. The production
// implementation lives in objectstore/s3; objectstore/memory backs tests
// and local development.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store provides read, write, list, and presign access to object storage.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the object body. The caller must close the reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Put writes an object, replacing any existing one under the key.
	Put(ctx context.Context, bucket, key string, body io.Reader) error

	// List returns the keys under the given prefix, in lexical order.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// PresignGet returns a time-limited URL granting read access to one object.
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// ParseURL splits an s3://bucket/key object reference into bucket and key.
func ParseURL(s3url string) (bucket, key string, err error) {
	u, err := url.Parse(s3url)
	if err != nil {
		return "", "", fmt.Errorf("parsing object URL %q: %w", s3url, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("object URL %q: scheme must be s3", s3url)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("object URL %q: missing bucket or key", s3url)
	}
	return bucket, key, nil
}

// URL formats a bucket and key as an s3:// object reference.
func URL(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
