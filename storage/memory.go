package storage

import (
	"context"
	"sync"

	"github.com/ruteri/split-session-service/interfaces"
)

// MemoryStore keeps encoded snapshots in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[interfaces.SessionID][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[interfaces.SessionID][]byte)}
}

// Create saves a new snapshot.
func (m *MemoryStore) Create(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[snapshot.ID]; exists {
		return interfaces.ErrSessionExists
	}
	m.sessions[snapshot.ID] = data
	return nil
}

// Fetch returns a copy of the stored snapshot.
func (m *MemoryStore) Fetch(ctx context.Context, id interfaces.SessionID) (*interfaces.SessionSnapshot, error) {
	m.mu.RLock()
	data, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return nil, interfaces.ErrSessionNotFound
	}
	return decodeSnapshot(id, data)
}

// Update replaces an existing snapshot.
func (m *MemoryStore) Update(ctx context.Context, snapshot *interfaces.SessionSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[snapshot.ID]; !exists {
		return interfaces.ErrSessionNotFound
	}
	m.sessions[snapshot.ID] = data
	return nil
}

// Delete removes a snapshot.
func (m *MemoryStore) Delete(ctx context.Context, id interfaces.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return interfaces.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Available always reports true.
func (m *MemoryStore) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this store.
func (m *MemoryStore) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this store.
func (m *MemoryStore) LocationURI() string {
	return "memory://"
}
