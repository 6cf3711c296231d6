package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-process deployments
// without a database. A multi-instance deployment must supply a durable store.
type MemoryStore struct {
	mu      sync.RWMutex
	byUUID  map[string]Identity
	byAkte  map[string]string // aktenzeichen -> uuid
	entries []AuditEntry
}

// NewMemoryStore constructs an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUUID: make(map[string]Identity),
		byAkte: make(map[string]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Get(_ context.Context, uuid string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.byUUID[uuid]
	if !ok {
		return nil, ErrNotFound
	}
	out := ident
	return &out, nil
}

func (m *MemoryStore) GetByAktenzeichen(_ context.Context, aktenzeichen string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAkte[aktenzeichen]
	if !ok {
		return nil, ErrNotFound
	}
	ident := m.byUUID[id]
	out := ident
	return &out, nil
}

func (m *MemoryStore) Save(_ context.Context, id *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byUUID[id.UUID]; ok && prev.Aktenzeichen != "" && prev.Aktenzeichen != id.Aktenzeichen {
		delete(m.byAkte, prev.Aktenzeichen)
	}
	m.byUUID[id.UUID] = *id
	if id.Aktenzeichen != "" {
		m.byAkte[id.Aktenzeichen] = id.UUID
	}
	return nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// AuditTrail returns the audit entries recorded for one identity, in order.
func (m *MemoryStore) AuditTrail(uuid string) []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AuditEntry
	for _, e := range m.entries {
		if e.UUID == uuid {
			out = append(out, e)
		}
	}
	return out
}
