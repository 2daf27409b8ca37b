package store

import (
	"context"
	"fmt"
	"sync"

	"agenthub/types"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process. It is used when no database is
// configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]types.SessionRecord
	sections map[uuid.UUID][]types.Section
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]types.SessionRecord),
		sections: make(map[uuid.UUID][]types.Section),
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, rec types.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[rec.ID]; ok {
		rec.Agent = old.Agent
		rec.CreatedAt = old.CreatedAt
	}
	m.sessions[rec.ID] = rec
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*types.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return &rec, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.sections, id)
	return nil
}

// SaveSections upserts by section id, keeping sections that are not part of
// the call, like the Postgres store does.
func (m *MemoryStore) SaveSections(_ context.Context, sessionID uuid.UUID, sections []types.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	stored := m.sections[sessionID]
	for _, s := range sections {
		replaced := false
		for i := range stored {
			if stored[i].ID == s.ID {
				stored[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			stored = append(stored, s)
		}
	}
	m.sections[sessionID] = stored
	return nil
}

func (m *MemoryStore) ListSections(_ context.Context, sessionID uuid.UUID) ([]types.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Section, len(m.sections[sessionID]))
	copy(out, m.sections[sessionID])
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
