// Package generation drives a document generation run over the section stream
// endpoints, in auto mode or with a manual approval pause after every section.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"agenthub/section"
	"agenthub/stream"
	"agenthub/types"

	"go.uber.org/zap"
)

// DefaultTotal is the section count assumed for progress reporting.
const DefaultTotal = 15

var (
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrStreamBusy          = errors.New("a generation stream is already open")
	ErrNotAwaitingApproval = errors.New("run is not awaiting approval")
	ErrStreamEnded         = errors.New("stream ended before completion")
	ErrAborted             = errors.New("generation aborted")
)

// ServerError is a failure reported by the backend inside the stream. The run is
// abandoned when one arrives.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "generation failed"
	}
	return e.Message
}

// Streamer opens the section streams of the backend.
type Streamer interface {
	CreatePRDStream(ctx context.Context, params types.PRDCreateParams) (io.ReadCloser, error)
	ContinuePRDStream(ctx context.Context, params types.PRDContinueParams) (io.ReadCloser, error)
}

type State string

const (
	StateIdle             State = "idle"
	StateStreaming        State = "streaming"
	StateAwaitingApproval State = "awaiting_approval"
	StateComplete         State = "complete"
	StateError            State = "error"
)

// Snapshot is a consistent view of a run.
type Snapshot struct {
	State      State                `json:"state"`
	Mode       types.GenerationMode `json:"mode"`
	Cursor     int                  `json:"cursor"`
	Waiting    bool                 `json:"waiting_for_approval"`
	StreamOpen bool                 `json:"stream_open"`
	LastError  string               `json:"last_error,omitempty"`
	Progress   float64              `json:"progress"`
	Total      int                  `json:"total"`
	Sections   []types.Section      `json:"sections"`
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithTotal sets the section count progress is measured against.
func WithTotal(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.total = n
		}
	}
}

// WithStreamTimeout bounds a single stream. Zero means no bound.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// OnSection registers a callback run after every delivered section is stored.
func OnSection(fn func(types.Section)) Option {
	return func(c *Controller) { c.onSection = fn }
}

// WithContinueHook lets the caller adjust a continuation request before it is
// sent, e.g. to fit the carried context into a budget.
func WithContinueHook(fn func(*types.PRDContinueParams)) Option {
	return func(c *Controller) { c.continueHook = fn }
}

type Controller struct {
	streamer Streamer
	store    *section.Store
	log      *zap.Logger

	total        int
	timeout      time.Duration
	onSection    func(types.Section)
	continueHook func(*types.PRDContinueParams)

	mu         sync.Mutex
	state      State
	mode       types.GenerationMode
	prompt     string
	docContext string
	sources    []types.DataSourcePayload
	cursor     int
	waiting    bool
	streamOpen bool
	lastErr    error
	cancel     context.CancelFunc
	aborted    bool
}

func NewController(streamer Streamer, store *section.Store, opts ...Option) *Controller {
	c := &Controller{
		streamer: streamer,
		store:    store,
		log:      zap.NewNop(),
		total:    DefaultTotal,
		state:    StateIdle,
		mode:     types.ModeAuto,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Store() *section.Store {
	return c.store
}

// Start begins a new run. The section store is cleared and the cursor reset. It
// blocks until the first stream is paused, completed or failed.
func (c *Controller) Start(ctx context.Context, mode types.GenerationMode, prompt, docContext string, sources []types.DataSourcePayload) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.streamOpen {
		c.mu.Unlock()
		return ErrStreamBusy
	}
	c.mode = mode
	c.prompt = prompt
	c.docContext = docContext
	c.sources = sources
	c.cursor = 0
	c.waiting = false
	c.lastErr = nil
	c.store.Reset()
	c.beginStreamLocked()
	c.mu.Unlock()

	c.log.Info("generation started", zap.String("mode", string(mode)))

	params := types.PRDCreateParams{
		Prompt:      prompt,
		Context:     docContext,
		DataSources: sources,
	}
	return c.run(ctx, StateIdle, func(ctx context.Context) (io.ReadCloser, error) {
		return c.streamer.CreatePRDStream(ctx, params)
	})
}

// Approve resumes a paused run from the cursor. The continuation carries the
// current content of every stored section, edits included.
func (c *Controller) Approve(ctx context.Context) error {
	c.mu.Lock()
	if c.streamOpen {
		c.mu.Unlock()
		return ErrStreamBusy
	}
	if c.state != StateAwaitingApproval {
		c.mu.Unlock()
		return ErrNotAwaitingApproval
	}
	params := types.PRDContinueParams{
		Prompt:           c.prompt,
		Context:          c.docContext,
		DataSources:      c.sources,
		PreviousSections: c.store.PreviousSections(),
		StartFromIndex:   c.cursor,
	}
	c.waiting = false
	c.lastErr = nil
	c.beginStreamLocked()
	c.mu.Unlock()

	if c.continueHook != nil {
		c.continueHook(&params)
	}
	c.log.Info("generation continued", zap.Int("start_from_index", params.StartFromIndex))

	return c.run(ctx, StateAwaitingApproval, func(ctx context.Context) (io.ReadCloser, error) {
		return c.streamer.ContinuePRDStream(ctx, params)
	})
}

// Resume is the persisted part of a run.
type Resume struct {
	Mode     types.GenerationMode
	Prompt   string
	Context  string
	Sources  []types.DataSourcePayload
	State    State
	Cursor   int
	Sections []types.Section
}

// Restore loads a persisted run into a controller with no open stream. A run
// that was cut off mid-stream comes back awaiting approval when it had
// delivered sections, idle otherwise.
func (c *Controller) Restore(r Resume) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streamOpen {
		return ErrStreamBusy
	}
	state := r.State
	if state == StateStreaming || state == "" {
		state = StateIdle
		if r.Cursor > 0 {
			state = StateAwaitingApproval
		}
	}
	c.mode = r.Mode
	c.prompt = r.Prompt
	c.docContext = r.Context
	c.sources = r.Sources
	c.cursor = r.Cursor
	c.setStateLocked(state)
	c.lastErr = nil
	c.store.Restore(r.Sections)
	return nil
}

// Abort cancels the open stream, if any. It reports whether there was one.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streamOpen || c.cancel == nil {
		return false
	}
	c.aborted = true
	c.cancel()
	return true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		State:      c.state,
		Mode:       c.mode,
		Cursor:     c.cursor,
		Waiting:    c.waiting,
		StreamOpen: c.streamOpen,
		Progress:   c.progressLocked(),
		Total:      c.total,
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()

	snap.Sections = c.store.Sections()
	return snap
}

// Progress is the share of the assumed total delivered so far, saturating at 1.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Controller) progressLocked() float64 {
	p := float64(c.cursor) / float64(c.total)
	if p > 1 {
		return 1
	}
	return p
}

func (c *Controller) beginStreamLocked() {
	c.state = StateStreaming
	c.streamOpen = true
	c.aborted = false
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomePaused
	outcomeComplete
	outcomeFailed
)

// run opens one stream and consumes it. revert is the state restored when the
// request fails before anything was delivered.
func (c *Controller) run(ctx context.Context, revert State, open func(context.Context) (io.ReadCloser, error)) error {
	var reqCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	body, err := open(reqCtx)
	if err != nil {
		return c.finishTransport(revert, 0, fmt.Errorf("open stream: %w", err))
	}

	var (
		result    = outcomeNone
		delivered int
		serverErr *ServerError
	)
	readErr := stream.Each(body, stream.DecodeSection, func(ev stream.SectionEvent) bool {
		switch ev.Kind {
		case stream.SectionDelivered:
			sec := c.store.Upsert(ev.Section)
			delivered++

			c.mu.Lock()
			c.cursor++
			pause := c.mode == types.ModeManual
			if pause {
				c.setStateLocked(StateAwaitingApproval)
			}
			cursor := c.cursor
			c.mu.Unlock()

			c.log.Debug("section delivered",
				zap.String("section_id", sec.ID),
				zap.Int("order", sec.Order),
				zap.Int("cursor", cursor))
			if c.onSection != nil {
				c.onSection(sec)
			}
			if pause {
				result = outcomePaused
				cancel()
				return false
			}
			return true
		case stream.SectionComplete:
			result = outcomeComplete
			return false
		case stream.SectionFailed:
			result = outcomeFailed
			serverErr = &ServerError{Message: ev.Err}
			return false
		}
		return true
	})
	body.Close()

	switch result {
	case outcomePaused:
		c.finish(StateAwaitingApproval, nil)
		c.log.Info("generation paused for approval")
		return nil
	case outcomeComplete:
		c.finish(StateComplete, nil)
		c.log.Info("generation complete", zap.Int("sections", c.store.Len()))
		return nil
	case outcomeFailed:
		c.finish(StateError, serverErr)
		c.log.Warn("generation failed", zap.String("error", serverErr.Message))
		return serverErr
	}

	if readErr == nil {
		readErr = ErrStreamEnded
	}
	return c.finishTransport(revert, delivered, fmt.Errorf("read stream: %w", readErr))
}

// setStateLocked moves the run to state. Waiting is only set by a manual
// pause; an auto run cut short is resumable through its state alone.
func (c *Controller) setStateLocked(state State) {
	c.state = state
	c.waiting = state == StateAwaitingApproval && c.mode == types.ModeManual
}

func (c *Controller) finish(state State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStateLocked(state)
	c.streamOpen = false
	c.cancel = nil
	c.lastErr = err
}

// finishTransport restores the run after a failed request. A stream that
// already delivered sections leaves the run resumable from the cursor.
func (c *Controller) finishTransport(revert State, delivered int, err error) error {
	c.mu.Lock()
	aborted := c.aborted
	c.mu.Unlock()

	if aborted {
		err = ErrAborted
	}
	state := revert
	if delivered > 0 {
		state = StateAwaitingApproval
	}
	c.finish(state, err)
	c.log.Warn("generation request failed",
		zap.Error(err),
		zap.String("state", string(state)))
	return err
}
