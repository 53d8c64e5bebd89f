// Package memory provides an in-memory session store for testing and
// single-instance deployments. Records are lost when the process
// restarts. Optional LRU eviction and a TTL bound memory usage.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/session"
)

// entry holds a stored record and its LRU position.
type entry struct {
	rec     *session.Record
	lruElem *list.Element
}

// Store is an in-memory session.Store with TTL and optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited
	ttl     time.Duration

	now func() time.Time // overridable in tests
}

var _ session.Store = (*Store)(nil)

// New creates an in-memory store. Records older than ttl since their
// last use are treated as absent; a ttl of 0 disables expiry. If
// maxSize > 0, the least recently used record is evicted when the
// limit is reached.
func New(ttl time.Duration, maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live record for key and refreshes its last-used time.
func (s *Store) Get(_ context.Context, key string) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, session.ErrNotFound
	}

	now := s.now()
	if s.expired(e.rec, now) {
		s.remove(key, e)
		return nil, session.ErrNotFound
	}

	e.rec.LastUsedAt = now
	s.lruList.MoveToFront(e.lruElem)
	return e.rec, nil
}

// Put inserts or replaces the record for rec.Key.
func (s *Store) Put(_ context.Context, rec *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[rec.Key]; ok {
		e.rec = rec
		s.lruList.MoveToFront(e.lruElem)
		return nil
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(rec.Key)
	s.entries[rec.Key] = &entry{rec: rec, lruElem: elem}
	return nil
}

// Remove deletes the record for key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.remove(key, e)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored records, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(rec *session.Record, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.LastUsedAt) > s.ttl
}

// remove deletes an entry. Must be called with s.mu held.
func (s *Store) remove(key string, e *entry) {
	s.lruList.Remove(e.lruElem)
	delete(s.entries, key)
}

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, key)
}
