// Package section holds the sections of one generated document and their edit
// lifecycle.
package section

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"agenthub/types"
)

var (
	ErrSectionNotFound   = errors.New("section not found")
	ErrInvalidTransition = errors.New("invalid section transition")
)

// Store keeps one entry per section id in arrival order. Several sections may be
// in editing at the same time; callers that need exclusive editing gate it
// themselves.
type Store struct {
	mu       sync.RWMutex
	sections []types.Section
	index    map[string]int
}

func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Upsert replaces the section with the same id in place, or appends it. A
// delivered section is always complete, and any pending edit of it is dropped.
func (s *Store) Upsert(p types.SectionPayload) types.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := types.Section{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Order:   p.Order,
		Status:  types.StatusComplete,
	}
	if i, ok := s.index[p.ID]; ok {
		s.sections[i] = sec
		return sec
	}
	s.index[p.ID] = len(s.sections)
	s.sections = append(s.sections, sec)
	return sec
}

func (s *Store) BeginEdit(id string) (types.Section, error) {
	return s.transition(id, types.StatusComplete, func(sec *types.Section) {
		sec.EditBuffer = sec.Content
		sec.Status = types.StatusEditing
	})
}

// SetDraft replaces the edit buffer of a section being edited.
func (s *Store) SetDraft(id, text string) (types.Section, error) {
	return s.transition(id, types.StatusEditing, func(sec *types.Section) {
		sec.EditBuffer = text
	})
}

func (s *Store) SaveEdit(id string) (types.Section, error) {
	return s.transition(id, types.StatusEditing, func(sec *types.Section) {
		sec.Content = sec.EditBuffer
		sec.EditBuffer = ""
		sec.Status = types.StatusComplete
	})
}

func (s *Store) CancelEdit(id string) (types.Section, error) {
	return s.transition(id, types.StatusEditing, func(sec *types.Section) {
		sec.EditBuffer = ""
		sec.Status = types.StatusComplete
	})
}

// Normalize rewrites the content of a section with NormalizeMarkdown. The status
// is left as is.
func (s *Store) Normalize(id string) (types.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return types.Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	s.sections[i].Content = NormalizeMarkdown(s.sections[i].Content)
	return s.sections[i], nil
}

func (s *Store) transition(id string, from types.SectionStatus, apply func(*types.Section)) (types.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return types.Section{}, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
	}
	sec := &s.sections[i]
	if sec.Status != from {
		return *sec, fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, id, sec.Status, from)
	}
	apply(sec)
	return *sec, nil
}

func (s *Store) Get(id string) (types.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return types.Section{}, false
	}
	return s.sections[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sections)
}

// Sections returns a copy of the sections in arrival order.
func (s *Store) Sections() []types.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// Ordered returns a copy of the sections sorted by ascending order. Sections
// with equal order keep their arrival order.
func (s *Store) Ordered() []types.Section {
	out := s.Sections()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// PreviousSections maps every title to the content currently held, which is the
// edited text once an edit was saved.
func (s *Store) PreviousSections() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.sections))
	for _, sec := range s.sections {
		out[sec.Title] = sec.Content
	}
	return out
}

// Editing returns the id of a section currently in editing, if any.
func (s *Store) Editing() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sec := range s.sections {
		if sec.Status == types.StatusEditing {
			return sec.ID, true
		}
	}
	return "", false
}

// Restore loads previously persisted sections, replacing the current content.
func (s *Store) Restore(sections []types.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sections = make([]types.Section, 0, len(sections))
	s.index = make(map[string]int, len(sections))
	for _, sec := range sections {
		// edit buffers are not persisted, an open edit comes back closed
		if sec.Status == types.StatusEditing {
			sec.Status = types.StatusComplete
			sec.EditBuffer = ""
		}
		if i, ok := s.index[sec.ID]; ok {
			s.sections[i] = sec
			continue
		}
		s.index[sec.ID] = len(s.sections)
		s.sections = append(s.sections, sec)
	}
}

func (s *Store) Reset() {
	s.Restore(nil)
}
