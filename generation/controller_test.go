package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"agenthub/section"
	"agenthub/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sectionLine(id, title, content string, order int) string {
	return fmt.Sprintf(`data: {"type":"section","section_id":%q,"title":%q,"content":%q,"order":%d}`+"\n", id, title, content, order)
}

const completeLine = `data: {"type":"complete","message":"PRD generation completed"}` + "\n"

// trackedBody streams its lines through a pipe so that the writer blocks until
// the reader asks for more, and records whether it was closed.
type trackedBody struct {
	*io.PipeReader
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newTrackedBody(lines ...string) *trackedBody {
	pr, pw := io.Pipe()
	b := &trackedBody{PipeReader: pr, done: make(chan struct{})}
	go func() {
		defer close(b.done)
		for _, l := range lines {
			if _, err := pw.Write([]byte(l)); err != nil {
				return
			}
		}
		pw.Close()
	}()
	return b
}

func (b *trackedBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	err := b.PipeReader.Close()
	<-b.done
	return err
}

func (b *trackedBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type fakeStreamer struct {
	mu        sync.Mutex
	create    []types.PRDCreateParams
	continues []types.PRDContinueParams
	ctxs      []context.Context
	bodies    []*trackedBody
	responses [][]string
	openErr   error
}

func (f *fakeStreamer) next(ctx context.Context) (io.ReadCloser, error) {
	f.ctxs = append(f.ctxs, ctx)
	if f.openErr != nil {
		return nil, f.openErr
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	body := newTrackedBody(f.responses[0]...)
	f.responses = f.responses[1:]
	f.bodies = append(f.bodies, body)
	return body, nil
}

func (f *fakeStreamer) CreatePRDStream(ctx context.Context, params types.PRDCreateParams) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.create = append(f.create, params)
	return f.next(ctx)
}

func (f *fakeStreamer) ContinuePRDStream(ctx context.Context, params types.PRDContinueParams) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continues = append(f.continues, params)
	return f.next(ctx)
}

func TestManualModePausesAndContinues(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{
		{sectionLine("overview", "Overview", "first draft", 0), sectionLine("goals", "Goals", "never read", 1), completeLine},
		{sectionLine("goals", "Goals", "g", 1), sectionLine("scope", "Scope", "never read", 2)},
	}}
	store := section.NewStore()
	c := NewController(f, store)

	err := c.Start(context.Background(), types.ModeManual, "a PRD for search", "ctx", nil)
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.True(t, snap.Waiting)
	assert.False(t, snap.StreamOpen)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, 1, store.Len())
	assert.True(t, f.bodies[0].isClosed())
	assert.ErrorIs(t, f.ctxs[0].Err(), context.Canceled)

	// edit the first section before approving
	_, err = store.BeginEdit("overview")
	require.NoError(t, err)
	_, err = store.SetDraft("overview", "edited draft")
	require.NoError(t, err)
	_, err = store.SaveEdit("overview")
	require.NoError(t, err)

	require.NoError(t, c.Approve(context.Background()))

	require.Len(t, f.continues, 1)
	cont := f.continues[0]
	assert.Equal(t, 1, cont.StartFromIndex)
	assert.Equal(t, map[string]string{"Overview": "edited draft"}, cont.PreviousSections)
	assert.Equal(t, "a PRD for search", cont.Prompt)
	assert.Equal(t, "ctx", cont.Context)

	snap = c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.Equal(t, 2, snap.Cursor)
	assert.Equal(t, 2, store.Len())
	assert.True(t, f.bodies[1].isClosed())
}

func TestAutoModeConsumesWholeStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{{
		sectionLine("a", "A", "1", 0),
		"data: {broken json\n",
		sectionLine("b", "B", "2", 1),
		sectionLine("a", "A", "1 again", 0),
		completeLine,
	}}}
	var seen []string
	c := NewController(f, section.NewStore(), OnSection(func(s types.Section) {
		seen = append(seen, s.ID)
	}))

	require.NoError(t, c.Start(context.Background(), types.ModeAuto, "p", "", nil))

	snap := c.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.False(t, snap.Waiting)
	assert.Equal(t, 3, snap.Cursor)
	require.Len(t, snap.Sections, 2)
	assert.Equal(t, "1 again", snap.Sections[0].Content)
	assert.Equal(t, []string{"a", "b", "a"}, seen)

	assert.ErrorIs(t, c.Approve(context.Background()), ErrNotAwaitingApproval)
}

func TestServerErrorAbandonsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{{
		sectionLine("a", "A", "1", 0),
		`data: {"type":"error","error":"model overloaded"}` + "\n",
		sectionLine("b", "B", "2", 1),
	}}}
	c := NewController(f, section.NewStore())

	err := c.Start(context.Background(), types.ModeAuto, "p", "", nil)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "model overloaded", serverErr.Message)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "model overloaded", snap.LastError)
	assert.Equal(t, 1, snap.Cursor)
}

func TestEmptyPromptIsRejectedBeforeRequest(t *testing.T) {
	f := &fakeStreamer{}
	c := NewController(f, section.NewStore())

	assert.ErrorIs(t, c.Start(context.Background(), types.ModeAuto, "   ", "", nil), ErrEmptyPrompt)
	assert.Empty(t, f.create)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestTransportFailureRevertsToIdle(t *testing.T) {
	f := &fakeStreamer{openErr: errors.New("connection refused")}
	c := NewController(f, section.NewStore())

	err := c.Start(context.Background(), types.ModeManual, "p", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.StreamOpen)
	assert.Equal(t, "open stream: connection refused", snap.LastError)
}

func TestStreamEndingEarlyKeepsDeliveredSections(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{
		{sectionLine("a", "A", "1", 0), sectionLine("b", "B", "2", 1)},
		{completeLine},
	}}
	c := NewController(f, section.NewStore())

	err := c.Start(context.Background(), types.ModeAuto, "p", "", nil)
	assert.ErrorIs(t, err, ErrStreamEnded)

	snap := c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.False(t, snap.Waiting)
	assert.Equal(t, 2, snap.Cursor)

	require.NoError(t, c.Approve(context.Background()))
	assert.Equal(t, 2, f.continues[0].StartFromIndex)
	assert.Equal(t, StateComplete, c.Snapshot().State)
}

func TestContinuationFailureRevertsToAwaitingApproval(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{
		{sectionLine("a", "A", "1", 0)},
	}}
	c := NewController(f, section.NewStore())
	require.NoError(t, c.Start(context.Background(), types.ModeManual, "p", "", nil))

	f.openErr = errors.New("502 bad gateway")
	require.Error(t, c.Approve(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.True(t, snap.Waiting)
	assert.Equal(t, 1, snap.Cursor)
}

func TestMalformedLinesLeaveStateUntouched(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{{
		"data: not json\n",
		"data: {\"type\":\"section\"}\n",
		"data: {\"unrelated\":true}\n",
		completeLine,
	}}}
	store := section.NewStore()
	c := NewController(f, store)

	require.NoError(t, c.Start(context.Background(), types.ModeManual, "p", "", nil))
	assert.Zero(t, store.Len())
	assert.Zero(t, c.Snapshot().Cursor)
	assert.Equal(t, StateComplete, c.Snapshot().State)
}

func TestSecondRequestRefusedWhileStreaming(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &blockingStreamer{opened: make(chan struct{})}
	c := NewController(f, section.NewStore())

	errc := make(chan error, 1)
	go func() {
		errc <- c.Start(context.Background(), types.ModeAuto, "p", "", nil)
	}()
	<-f.opened

	assert.ErrorIs(t, c.Start(context.Background(), types.ModeAuto, "p", "", nil), ErrStreamBusy)
	assert.ErrorIs(t, c.Approve(context.Background()), ErrStreamBusy)
	assert.True(t, c.Snapshot().StreamOpen)

	assert.True(t, c.Abort())
	assert.ErrorIs(t, <-errc, ErrAborted)

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.StreamOpen)
}

// blockingStreamer returns a body whose reads block until the request context
// is cancelled.
type blockingStreamer struct {
	opened chan struct{}
}

type ctxBody struct {
	ctx context.Context
}

func (b ctxBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b ctxBody) Close() error { return nil }

func (s *blockingStreamer) CreatePRDStream(ctx context.Context, _ types.PRDCreateParams) (io.ReadCloser, error) {
	close(s.opened)
	return ctxBody{ctx: ctx}, nil
}

func (s *blockingStreamer) ContinuePRDStream(ctx context.Context, _ types.PRDContinueParams) (io.ReadCloser, error) {
	return ctxBody{ctx: ctx}, nil
}

func TestProgressSaturates(t *testing.T) {
	defer goleak.VerifyNone(t)

	lines := make([]string, 0, 5)
	for i := 0; i < 4; i++ {
		lines = append(lines, sectionLine(fmt.Sprint(i), "T"+fmt.Sprint(i), "x", i))
	}
	lines = append(lines, completeLine)
	f := &fakeStreamer{responses: [][]string{lines}}
	c := NewController(f, section.NewStore(), WithTotal(3))

	assert.Zero(t, c.Progress())
	require.NoError(t, c.Start(context.Background(), types.ModeAuto, "p", "", nil))
	assert.Equal(t, 1.0, c.Progress())
	assert.Equal(t, 3, c.Snapshot().Total)
}

func TestContinueHookAdjustsRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{
		{sectionLine("a", "A", strings.Repeat("x", 10), 0)},
		{completeLine},
	}}
	c := NewController(f, section.NewStore(), WithContinueHook(func(p *types.PRDContinueParams) {
		p.PreviousSections["A"] = "trimmed"
	}))
	require.NoError(t, c.Start(context.Background(), types.ModeManual, "p", "", nil))
	require.NoError(t, c.Approve(context.Background()))

	assert.Equal(t, "trimmed", f.continues[0].PreviousSections["A"])
	original, _ := c.Store().Get("a")
	assert.Equal(t, strings.Repeat("x", 10), original.Content)
}

func TestRestoreResumesFromCursor(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeStreamer{responses: [][]string{
		{sectionLine("scope", "Scope", "s", 2), completeLine},
	}}
	store := section.NewStore()
	c := NewController(f, store)

	err := c.Restore(Resume{
		Mode:    types.ModeManual,
		Prompt:  "p",
		Context: "ctx",
		Sources: []types.DataSourcePayload{{Type: types.SourceText, Name: "n", Content: "c"}},
		State:   StateStreaming,
		Cursor:  2,
		Sections: []types.Section{
			{ID: "overview", Title: "Overview", Content: "o", Order: 0, Status: types.StatusComplete},
			{ID: "goals", Title: "Goals", Content: "g", Order: 1, Status: types.StatusComplete},
		},
	})
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.True(t, snap.Waiting)
	assert.Len(t, snap.Sections, 2)

	c.mode = types.ModeAuto
	require.NoError(t, c.Approve(context.Background()))
	require.Len(t, f.continues, 1)
	assert.Equal(t, 2, f.continues[0].StartFromIndex)
	assert.Equal(t, "ctx", f.continues[0].Context)
	assert.Len(t, f.continues[0].DataSources, 1)
	assert.Equal(t, StateComplete, c.Snapshot().State)
}

func TestRestoreWithoutSectionsIsIdle(t *testing.T) {
	c := NewController(&fakeStreamer{}, section.NewStore())
	require.NoError(t, c.Restore(Resume{Prompt: "p", State: StateStreaming}))
	assert.Equal(t, StateIdle, c.Snapshot().State)

	require.NoError(t, c.Restore(Resume{Prompt: "p", State: StateComplete, Cursor: 3}))
	assert.Equal(t, StateComplete, c.Snapshot().State)
	assert.False(t, c.Snapshot().Waiting)
}

func TestRestoredAutoRunIsNotWaiting(t *testing.T) {
	c := NewController(&fakeStreamer{}, section.NewStore())
	require.NoError(t, c.Restore(Resume{Mode: types.ModeAuto, Prompt: "p", State: StateStreaming, Cursor: 2}))

	snap := c.Snapshot()
	assert.Equal(t, StateAwaitingApproval, snap.State)
	assert.False(t, snap.Waiting)
}
