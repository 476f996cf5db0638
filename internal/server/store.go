package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/signin"
)

const (
	// DefaultViewTTL is how long an untouched view is kept.
	DefaultViewTTL = 30 * time.Minute
	// DefaultMaxViews caps the number of stored views.
	DefaultMaxViews = 10000
)

// ViewStore keeps one sign-in view per visitor and evicts idle ones. Evicted
// views are closed so their countdown goroutines stop.
type ViewStore struct {
	ttl     time.Duration
	max     int
	now     func() time.Time
	logger  zerolog.Logger
	onEvict func(id string)

	mu      sync.Mutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	view     *signin.View
	lastSeen time.Time
}

// StoreOption configures a ViewStore.
type StoreOption func(*ViewStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ViewStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger attaches a logger.
func WithStoreLogger(logger zerolog.Logger) StoreOption {
	return func(s *ViewStore) {
		s.logger = logger
	}
}

// WithCapacity caps the store at n views. Storing a new view in a full
// store evicts the least recently used one. Non-positive values keep
// DefaultMaxViews.
func WithCapacity(n int) StoreOption {
	return func(s *ViewStore) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithEvictHook is called with the id of every view removed from the store.
func WithEvictHook(fn func(id string)) StoreOption {
	return func(s *ViewStore) {
		s.onEvict = fn
	}
}

// NewViewStore creates a store evicting views idle for longer than ttl.
func NewViewStore(ttl time.Duration, opts ...StoreOption) *ViewStore {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	s := &ViewStore{
		ttl:     ttl,
		max:     DefaultMaxViews,
		now:     time.Now,
		logger:  zerolog.Nop(),
		entries: make(map[string]*storeEntry),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Get returns the view stored under id and marks it as used.
func (s *ViewStore) Get(id string) (*signin.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.view, true
}

// Put stores view under id, closing any view it replaces. A full store first
// evicts its least recently used view.
func (s *ViewStore) Put(id string, view *signin.View) {
	s.mu.Lock()
	prev, replaced := s.entries[id]
	var oldestID string
	var oldest *storeEntry
	if !replaced && len(s.entries) >= s.max {
		for key, entry := range s.entries {
			if oldest == nil || entry.lastSeen.Before(oldest.lastSeen) {
				oldestID, oldest = key, entry
			}
		}
		delete(s.entries, oldestID)
	}
	s.entries[id] = &storeEntry{view: view, lastSeen: s.now()}
	s.mu.Unlock()

	if replaced && prev.view != view {
		prev.view.Close()
	}
	if oldest != nil {
		oldest.view.Close()
		s.evicted(oldestID)
		s.logger.Warn().Int("capacity", s.max).Msg("view store full, evicted least recently used view")
	}
}

// Delete removes and closes the view stored under id.
func (s *ViewStore) Delete(id string) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		entry.view.Close()
		s.evicted(id)
	}
}

// Len returns the number of stored views.
func (s *ViewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts views idle for longer than the TTL and returns how many went.
func (s *ViewStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	var views []*signin.View
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, id)
			views = append(views, entry.view)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for i, view := range views {
		view.Close()
		s.evicted(expired[i])
	}
	if len(expired) > 0 {
		s.logger.Debug().Int("evicted", len(expired)).Msg("idle sign-in views evicted")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all views.
func (s *ViewStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close closes and removes every view.
func (s *ViewStore) Close() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*storeEntry)
	s.mu.Unlock()

	for id, entry := range entries {
		entry.view.Close()
		s.evicted(id)
	}
}

func (s *ViewStore) evicted(id string) {
	if s.onEvict != nil {
		s.onEvict(id)
	}
}
