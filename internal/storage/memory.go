// Package storage keeps the announcement history.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

// DefaultCapacity is how many announcements a MemoryStore keeps.
const DefaultCapacity = 200

// Compile-time interface check.
var _ domain.AnnouncementStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory announcement history bounded to a fixed
// capacity; the oldest entry is dropped first. Safe for concurrent access.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string // oldest first
	entries  map[string]domain.Announcement
	log      *logger.Logger
}

// NewMemoryStore creates an empty store holding at most capacity entries.
// A capacity of zero or less uses DefaultCapacity.
func NewMemoryStore(capacity int, log *logger.Logger) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		entries:  make(map[string]domain.Announcement),
		log:      log,
	}
}

// Save records an announcement. Saving an existing ID overwrites it in
// place.
func (s *MemoryStore) Save(_ context.Context, a domain.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving announcement %s (status=%s)", a.ID, a.Status)
	if _, ok := s.entries[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.entries[a.ID] = a

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
	return nil
}

// Load retrieves an announcement by ID.
func (s *MemoryStore) Load(_ context.Context, id string) (domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.entries[id]
	if !ok {
		s.log.Debug("announcement not found: %s", id)
		return domain.Announcement{}, domain.ErrNotFound
	}
	return a, nil
}

// Recent returns up to n announcements, newest first. n <= 0 returns all.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]domain.Announcement, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[s.order[i]])
	}
	return out, nil
}
