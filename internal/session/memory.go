package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is a process-local Store with no persistence across restarts.
//
// Records are held as serialized JSON so the store can never hand out or
// retain a reference to a caller's session value.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, id string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	m.mu.Lock()
	m.sessions[id] = raw
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	return ok, nil
}

// ListAll implements Store.
func (m *MemoryStore) ListAll(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	raws := make([][]byte, 0, len(m.sessions))
	for _, raw := range m.sessions {
		raws = append(raws, raw)
	}
	m.mu.RUnlock()

	sessions := make([]*Session, 0, len(raws))
	for _, raw := range raws {
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}
