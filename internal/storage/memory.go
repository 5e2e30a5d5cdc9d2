package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps everything in maps. It is the default when nothing is
// configured and the store used by tests.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	sessions map[uuid.UUID]SessionRecord
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte), sessions: make(map[uuid.UUID]SessionRecord)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[rec.ID]; ok {
		return nil
	}
	m.sessions[rec.ID] = rec
	return nil
}

func (m *Memory) CompleteSession(_ context.Context, id uuid.UUID, res SessionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.apply(res)
	m.sessions[id] = rec
	return nil
}

func (m *Memory) FetchStats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st Stats
	for _, r := range m.sessions {
		st.add(r)
	}
	return st, nil
}
