package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in a process-local map with per-key expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]memoryEntry

	now             Clock
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

type memoryEntry struct {
	bucket    Bucket
	expiresAt time.Time // zero means no expiry
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for expired entries.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// WithStoreClock overrides the clock used for expiry.
func WithStoreClock(clock Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryStore creates a new in-memory store with automatic cleanup.
// Call Close to stop the cleanup goroutine.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:         make(map[string]memoryEntry),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Load returns the bucket stored under key unless it has expired.
func (s *MemoryStore) Load(_ context.Context, key string) (Bucket, bool, error) {
	s.mu.RLock()
	e, ok := s.buckets[key]
	s.mu.RUnlock()

	if !ok || e.expired(s.now()) {
		return Bucket{}, false, nil
	}
	return e.bucket, true, nil
}

// Save stores b under key. A non-positive ttl keeps the entry until overwritten.
func (s *MemoryStore) Save(_ context.Context, key string, b Bucket, ttl time.Duration) error {
	e := memoryEntry{bucket: b}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.buckets[key] = e
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next cleanup.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.buckets {
		if e.expired(now) {
			delete(s.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
