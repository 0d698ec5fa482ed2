package jobs

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
)

// ObjectStore is the object-storage collaborator the cache persists
// through. Get reports absence via the bool, not an error.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, bool, error)
	Put(ctx context.Context, bucket, key string, body []byte) error
}

// Cache is the date-keyed idempotent artifact cache. Generation is the
// expensive, billable step; the cache turns a per-request cost into a
// per-day-per-entity cost, and it is the only dedup point for at-least-once
// queue delivery.
type Cache struct {
	store  ObjectStore
	bucket string
	prefix string
}

func NewCache(store ObjectStore, bucket, prefix string) *Cache {
	return &Cache{store: store, bucket: bucket, prefix: prefix}
}

// CacheKey is the deterministic object key for a (job key, date) pair.
func (c *Cache) CacheKey(key, date string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(key, "/", "_"))
	return path.Join(c.prefix, date, sanitized+".md")
}

// Lookup returns the artifact for (key, date) if one exists.
func (c *Cache) Lookup(ctx context.Context, key, date string) ([]byte, bool, error) {
	content, found, err := c.store.Get(ctx, c.bucket, c.CacheKey(key, date))
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	return content, found, nil
}

// Store writes the artifact and returns its location. A Lookup with the
// same (key, date) immediately after must return these bytes.
func (c *Cache) Store(ctx context.Context, key, date string, content []byte) (string, error) {
	objectKey := c.CacheKey(key, date)
	if err := c.store.Put(ctx, c.bucket, objectKey, content); err != nil {
		return "", fmt.Errorf("cache store failed: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, objectKey), nil
}

// MemoryObjectStore is an in-process ObjectStore for tests and local runs.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (s *MemoryObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, true, nil
}

func (s *MemoryObjectStore) Put(ctx context.Context, bucket, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(body))
	copy(stored, body)
	s.objects[bucket+"/"+key] = stored
	return nil
}
