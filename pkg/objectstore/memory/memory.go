// Package memory provides an in-memory objectstore.Store for testing and
// local development. Objects are lost when the process exits.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/objectstore"
)

// Store is an in-memory objectstore.Store keyed by bucket and object key.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte // "bucket/key" -> body
}

// Ensure Store implements objectstore.Store at compile time.
var _ objectstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func objKey(bucket, key string) string {
	return bucket + "/" + key
}

// Get returns the object body.
func (s *Store) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.objects[objKey(bucket, key)]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// Put stores the object body.
func (s *Store) Put(_ context.Context, bucket, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objKey(bucket, key)] = data
	return nil
}

// List returns the keys under the prefix in lexical order.
func (s *Store) List(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	full := objKey(bucket, prefix)
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// PresignGet returns a synthetic time-limited URL. The URL is not
// resolvable; tests assert on its shape only.
func (s *Store) PresignGet(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.objects[objKey(bucket, key)]; !ok {
		return "", objectstore.ErrNotFound
	}
	return fmt.Sprintf("https://%s.example.test/%s?expires=%d", bucket, key, int(expires.Seconds())), nil
}
