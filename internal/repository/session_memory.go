package repository

import (
	"context"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

type memoryEntry struct {
	mu      sync.Mutex
	session *domain.Session
	removed bool
}

// MemorySessionStore keeps sessions in process memory. Entries are locked
// before the map, and removed entries are flagged so a waiting Update sees
// the deletion.
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]*memoryEntry)}
}

// Create stores a copy of session
func (r *MemorySessionStore) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[session.ID]; ok {
		return domain.ErrSessionExists
	}
	r.entries[session.ID] = &memoryEntry{session: session.Clone()}
	return nil
}

// GetByID returns a copy of the stored session
func (r *MemorySessionStore) GetByID(_ context.Context, id string) (*domain.Session, error) {
	entry := r.entry(id)
	if entry == nil {
		return nil, domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return nil, domain.ErrSessionNotFound
	}
	return entry.session.Clone(), nil
}

// Update runs fn on a copy under the entry lock and keeps the copy when fn
// succeeds.
func (r *MemorySessionStore) Update(_ context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	entry := r.entry(id)
	if entry == nil {
		return nil, domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return nil, domain.ErrSessionNotFound
	}

	working := entry.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.session = working
	return working.Clone(), nil
}

// Delete removes a session
func (r *MemorySessionStore) Delete(_ context.Context, id string) error {
	entry := r.entry(id)
	if entry == nil {
		return domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return domain.ErrSessionNotFound
	}
	r.remove(id, entry)
	return nil
}

// DeleteExpired removes every session past its expiry and returns their IDs
func (r *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) ([]string, error) {
	var removed []string
	for id, entry := range r.snapshot() {
		entry.mu.Lock()
		if !entry.removed && entry.session.IsExpiredAt(now) {
			r.remove(id, entry)
			removed = append(removed, id)
		}
		entry.mu.Unlock()
	}
	return removed, nil
}

// Stats counts the stored sessions
func (r *MemorySessionStore) Stats(_ context.Context, now time.Time) (domain.SessionStats, error) {
	var stats domain.SessionStats
	for _, entry := range r.snapshot() {
		entry.mu.Lock()
		if !entry.removed {
			stats.Count(entry.session, now)
		}
		entry.mu.Unlock()
	}
	return stats, nil
}

func (r *MemorySessionStore) entry(id string) *memoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func (r *MemorySessionStore) snapshot() map[string]*memoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*memoryEntry, len(r.entries))
	for id, entry := range r.entries {
		out[id] = entry
	}
	return out
}

// remove must be called with entry.mu held.
func (r *MemorySessionStore) remove(id string, entry *memoryEntry) {
	entry.removed = true

	r.mu.Lock()
	if r.entries[id] == entry {
		delete(r.entries, id)
	}
	r.mu.Unlock()
}
