package bookmark

import (
	"context"
	"sync"
)

// MemoryStore keeps bookmarks in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	bookmarks map[string]*Bookmark
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookmarks: make(map[string]*Bookmark)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, b *Bookmark) error {
	if err := Prepare(b); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.bookmarks[b.ID] = clone(b)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	b, ok := m.bookmarks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.bookmarks, id)
	return nil
}

// Len returns the number of stored bookmarks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookmarks)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.bookmarks = nil
	return nil
}
