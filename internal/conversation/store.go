// Package conversation keeps the last solved photo of every user in memory
// so that a follow-up question can be answered with the same context.
package conversation

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Context is the state kept for one user. It is always replaced whole.
type Context struct {
	UserID    int64
	Image     []byte
	MIMEType  string
	Solution  string
	UpdatedAt time.Time
}

// Store maps user ids to their Context. It is bounded by an LRU capacity
// and, when ttl is positive, by an idle time-to-live. Safe for concurrent use.
type Store struct {
	// mu serializes replacements with sweeps so a sweep never drops a fresh entry.
	mu    sync.Mutex
	cache *lru.Cache[int64, Context]
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store holding at most maxEntries users. A zero ttl disables expiry.
func New(maxEntries int, ttl time.Duration, opts ...Option) (*Store, error) {
	cache, err := lru.New[int64, Context](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}
	s := &Store{cache: cache, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put replaces the context of userID. The image bytes are copied.
func (s *Store) Put(userID int64, image []byte, mimeType, solution string) {
	entry := Context{
		UserID:    userID,
		Image:     append([]byte(nil), image...),
		MIMEType:  mimeType,
		Solution:  solution,
		UpdatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(userID, entry)
}

// Get returns the context of userID. Expired entries are reported as absent.
// The returned image must not be modified.
func (s *Store) Get(userID int64) (Context, bool) {
	entry, ok := s.cache.Get(userID)
	if !ok || s.expired(entry) {
		return Context{}, false
	}
	return entry, true
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.cache.Keys() {
		entry, ok := s.cache.Peek(key)
		if ok && s.expired(entry) && s.cache.Remove(key) {
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) expired(entry Context) bool {
	return s.ttl > 0 && s.now().Sub(entry.UpdatedAt) >= s.ttl
}
