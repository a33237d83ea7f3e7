package server

import (
	"sort"
	"sync"
	"time"

	"github.com/dygy/sonigraph/internal/composition"
)

// DefaultRetention is how long a composition stays retrievable
const DefaultRetention = 30 * time.Minute

// Entry is a stored composition and the Strudel code rendered for it
type Entry struct {
	Composition *composition.Composition
	Strudel     string
	StoredAt    time.Time
}

// Store keeps recent compositions in memory for the download endpoints
type Store struct {
	entries   map[string]*Entry
	mu        sync.RWMutex
	retention time.Duration
	limit     int
	now       func() time.Time
}

// NewStore creates a store. Entries older than retention are dropped on the
// next write; limit caps the number kept (0 means unbounded).
func NewStore(retention time.Duration, limit int) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		entries:   make(map[string]*Entry),
		retention: retention,
		limit:     limit,
		now:       time.Now,
	}
}

// Put stores a composition under its ID, replacing any previous entry
func (s *Store) Put(c *composition.Composition, code string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{Composition: c, Strudel: code, StoredAt: s.now()}
	s.entries[c.ID] = entry
	s.prune()
	return entry
}

// Get retrieves an entry by composition ID
func (s *Store) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.now().Sub(e.StoredAt) > s.retention {
		return nil
	}
	return e
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// prune drops expired entries, then the oldest ones over the limit.
// Callers hold the write lock.
func (s *Store) prune() {
	now := s.now()
	for id, e := range s.entries {
		if now.Sub(e.StoredAt) > s.retention {
			delete(s.entries, id)
		}
	}
	if s.limit <= 0 || len(s.entries) <= s.limit {
		return
	}

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.entries[ids[i]].StoredAt.Before(s.entries[ids[j]].StoredAt)
	})
	for _, id := range ids[:len(ids)-s.limit] {
		delete(s.entries, id)
	}
}
