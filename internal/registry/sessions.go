package registry

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sessions hands out one Debouncer per browsing session, bounded by an LRU.
type Sessions struct {
	checker *Checker
	delay   time.Duration

	mu    sync.Mutex
	cache *lru.Cache[string, *Debouncer]
}

// NewSessions builds a bounded per-session debouncer registry. Evicted debouncers are stopped.
func NewSessions(checker *Checker, delay time.Duration, size int) (*Sessions, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict[string, *Debouncer](size, func(_ string, d *Debouncer) {
		d.Stop()
	})
	if err != nil {
		return nil, err
	}
	return &Sessions{checker: checker, delay: delay, cache: cache}, nil
}

// For returns the session's debouncer, creating it on first use.
func (s *Sessions) For(sessionID string) *Debouncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.cache.Get(sessionID); ok {
		return d
	}
	d := NewDebouncer(func(ctx context.Context, handle string) (Result, error) {
		return s.checker.CheckFor(ctx, sessionID, handle)
	}, s.delay)
	s.cache.Add(sessionID, d)
	return d
}

// Len reports the number of live debouncers.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Close stops every debouncer.
func (s *Sessions) Close() {
	s.cache.Purge()
}
