package section

import (
	"fmt"
	"sync"
	"testing"

	"agenthub/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(id, title, content string, order int) types.SectionPayload {
	return types.SectionPayload{ID: id, Title: title, Content: content, Order: order}
}

func TestUpsertKeepsOneEntryPerID(t *testing.T) {
	s := NewStore()
	deliveries := []types.SectionPayload{
		payload("a", "A", "a1", 0),
		payload("b", "B", "b1", 1),
		payload("a", "A", "a2", 0),
		payload("c", "C", "c1", 2),
		payload("b", "B", "b2", 1),
		payload("a", "A", "a3", 0),
	}
	seen := map[string]bool{}
	for _, d := range deliveries {
		s.Upsert(d)
		seen[d.ID] = true
		assert.LessOrEqual(t, s.Len(), len(seen))
	}

	got := s.Sections()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "a3", got[0].Content)
	assert.Equal(t, "b2", got[1].Content)
	for _, sec := range got {
		assert.Equal(t, types.StatusComplete, sec.Status)
	}
}

func TestEditLifecycle(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("goals", "Goals", "ship it", 1))

	sec, err := s.BeginEdit("goals")
	require.NoError(t, err)
	assert.Equal(t, types.StatusEditing, sec.Status)
	assert.Equal(t, "ship it", sec.EditBuffer)

	_, err = s.BeginEdit("goals")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.SetDraft("goals", "ship it twice")
	require.NoError(t, err)

	sec, err = s.SaveEdit("goals")
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, sec.Status)
	assert.Equal(t, "ship it twice", sec.Content)
	assert.Empty(t, sec.EditBuffer)

	assert.Equal(t, map[string]string{"Goals": "ship it twice"}, s.PreviousSections())
}

func TestCancelEditKeepsContent(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("goals", "Goals", "original", 1))

	_, err := s.BeginEdit("goals")
	require.NoError(t, err)
	_, err = s.SetDraft("goals", "discarded")
	require.NoError(t, err)

	sec, err := s.CancelEdit("goals")
	require.NoError(t, err)
	assert.Equal(t, "original", sec.Content)
	assert.Empty(t, sec.EditBuffer)
	assert.Equal(t, types.StatusComplete, sec.Status)
}

func TestTransitionErrors(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("a", "A", "x", 0))

	_, err := s.BeginEdit("missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)

	_, err = s.SaveEdit("a")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.CancelEdit("a")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.SetDraft("a", "y")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Normalize("missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestSeveralSectionsMayBeEditing(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("a", "A", "x", 0))
	s.Upsert(payload("b", "B", "y", 1))

	_, err := s.BeginEdit("a")
	require.NoError(t, err)
	_, err = s.BeginEdit("b")
	require.NoError(t, err)

	id, ok := s.Editing()
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestRedeliveryDropsEdit(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("a", "A", "x", 0))
	_, err := s.BeginEdit("a")
	require.NoError(t, err)

	sec := s.Upsert(payload("a", "A", "fresh", 0))
	assert.Equal(t, types.StatusComplete, sec.Status)
	assert.Empty(t, sec.EditBuffer)
}

func TestOrderedSortsByOrder(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("b", "B", "", 2))
	s.Upsert(payload("a", "A", "", 0))
	s.Upsert(payload("c", "C", "", 1))

	var titles []string
	for _, sec := range s.Ordered() {
		titles = append(titles, sec.Title)
	}
	assert.Equal(t, []string{"A", "C", "B"}, titles)

	// arrival order is untouched
	assert.Equal(t, "B", s.Sections()[0].Title)
}

func TestNormalizeKeepsStatus(t *testing.T) {
	s := NewStore()
	s.Upsert(payload("a", "A", "* item\n\n\n\nnext", 0))
	_, err := s.BeginEdit("a")
	require.NoError(t, err)

	sec, err := s.Normalize("a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusEditing, sec.Status)
	assert.Equal(t, "• item\n\nnext", sec.Content)
}

func TestRestoreAndReset(t *testing.T) {
	s := NewStore()
	s.Restore([]types.Section{
		{ID: "a", Title: "A", Content: "x", Status: types.StatusComplete},
		{ID: "b", Title: "B", Content: "y", Status: types.StatusComplete},
	})
	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "y", got.Content)

	s.Reset()
	assert.Zero(t, s.Len())
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestRestoreClosesOpenEdits(t *testing.T) {
	s := NewStore()
	s.Restore([]types.Section{
		{ID: "a", Title: "A", Content: "original A", Status: types.StatusEditing},
	})

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, types.StatusComplete, got.Status)
	assert.Equal(t, "original A", got.Content)

	_, err := s.SaveEdit("a")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	got, _ = s.Get("a")
	assert.Equal(t, "original A", got.Content)
}

func TestStoreConcurrentUpserts(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Upsert(payload(fmt.Sprintf("s%d", j%10), "T", fmt.Sprint(i), j%10))
				_ = s.PreviousSections()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len())
}
