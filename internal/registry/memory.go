package registry

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-memory Registry implementation.
// Safe for concurrent use across sagas of different documents.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory constructs an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

var _ Registry = (*Memory)(nil)

func (m *Memory) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	m.entries[entry.DocumentID] = entry
	return nil
}

func (m *Memory) Get(_ context.Context, documentID string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[documentID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (m *Memory) SetArchived(_ context.Context, documentID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[documentID]
	if !ok {
		return ErrNotFound
	}
	entry.Archived = archived
	entry.UpdatedAt = time.Now().UTC()
	m.entries[documentID] = entry
	return nil
}

func (m *Memory) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, documentID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}
