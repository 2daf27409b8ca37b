package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agenthub/generation"
	"agenthub/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager holds the open sessions of the front-end server. PRD sessions are
// written through to the storer and reloaded from it on a miss; email
// sessions live in memory only.
type Manager struct {
	streamer generation.Streamer
	email    EmailBackend
	storer   store.SessionStorer
	cfg      PRDConfig
	log      *zap.Logger

	mu     sync.Mutex
	prd    map[uuid.UUID]*PRDSession
	emails map[uuid.UUID]*EmailSession
}

func NewManager(streamer generation.Streamer, email EmailBackend, storer store.SessionStorer, cfg PRDConfig) *Manager {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		streamer: streamer,
		email:    email,
		storer:   storer,
		cfg:      cfg,
		log:      log,
		prd:      make(map[uuid.UUID]*PRDSession),
		emails:   make(map[uuid.UUID]*EmailSession),
	}
}

func (m *Manager) CreatePRD() *PRDSession {
	s := NewPRDSession(uuid.New(), m.streamer, m.storer, m.cfg)

	m.mu.Lock()
	m.prd[s.ID()] = s
	m.mu.Unlock()

	m.log.Info("prd session created", zap.Stringer("session_id", s.ID()))
	return s
}

func (m *Manager) PRD(ctx context.Context, id uuid.UUID) (*PRDSession, error) {
	m.mu.Lock()
	s, ok := m.prd[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}
	return m.loadPRD(ctx, id)
}

func (m *Manager) loadPRD(ctx context.Context, id uuid.UUID) (*PRDSession, error) {
	if m.storer == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	rec, err := m.storer.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	if rec.Agent != PRDAgentID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sections, err := m.storer.ListSections(ctx, id)
	if err != nil {
		return nil, err
	}

	s := NewPRDSession(id, m.streamer, m.storer, m.cfg)
	if err := s.restore(*rec, sections); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have loaded it meanwhile
	if existing, ok := m.prd[id]; ok {
		s.Close()
		return existing, nil
	}
	m.prd[id] = s
	m.log.Info("prd session restored", zap.Stringer("session_id", id), zap.Int("sections", len(sections)))
	return s, nil
}

// DeletePRD aborts the session and drops it, from the storer too.
func (m *Manager) DeletePRD(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.prd[id]
	delete(m.prd, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	if m.storer != nil {
		if err := m.storer.DeleteSession(ctx, id); err != nil {
			return err
		}
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (m *Manager) CreateEmail() (uuid.UUID, *EmailSession) {
	id := uuid.New()
	s := NewEmailSession(m.email, m.log.With(zap.Stringer("session_id", id)))

	m.mu.Lock()
	m.emails[id] = s
	m.mu.Unlock()
	return id, s
}

func (m *Manager) Email(id uuid.UUID) (*EmailSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.emails[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close aborts every open PRD session and waits for their runs.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*PRDSession, 0, len(m.prd))
	for _, s := range m.prd {
		sessions = append(sessions, s)
	}
	m.prd = make(map[uuid.UUID]*PRDSession)
	m.emails = make(map[uuid.UUID]*EmailSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
