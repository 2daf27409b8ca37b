package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"agenthub/export"
	"agenthub/generation"
	"agenthub/section"
	"agenthub/store"
	"agenthub/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const PRDAgentID = "prd-writer"

const persistTimeout = 5 * time.Second

var ErrAlreadyEditing = errors.New("another section is being edited")

type PRDRequest struct {
	Mode    types.GenerationMode
	Prompt  string
	Context string
	Sources []types.DataSourcePayload
}

type PRDConfig struct {
	Total         int
	StreamTimeout time.Duration
	Budget        Budget
	Title         string
	Log           *zap.Logger
}

// PRDSession is one PRD writer view: a generation run, its sections and the
// editing gate that lets one section at a time be edited.
type PRDSession struct {
	id      uuid.UUID
	created time.Time
	title   string

	ctrl     *generation.Controller
	sections *section.Store
	storer   store.SessionStorer
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	req     PRDRequest
}

// PRDView is what a client sees of a session.
type PRDView struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	generation.Snapshot
}

func NewPRDSession(id uuid.UUID, streamer generation.Streamer, storer store.SessionStorer, cfg PRDConfig) *PRDSession {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("session_id", id))

	ctx, cancel := context.WithCancel(context.Background())
	s := &PRDSession{
		id:       id,
		created:  time.Now().UTC(),
		title:    cfg.Title,
		sections: section.NewStore(),
		storer:   storer,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	budget := cfg.Budget
	if budget.Log == nil {
		budget.Log = log
	}
	s.ctrl = generation.NewController(streamer, s.sections,
		generation.WithLogger(log),
		generation.WithTotal(cfg.Total),
		generation.WithStreamTimeout(cfg.StreamTimeout),
		generation.WithContinueHook(budget.Fit),
		generation.OnSection(func(types.Section) { s.persist() }),
	)
	return s
}

func (s *PRDSession) ID() uuid.UUID { return s.id }

func (s *PRDSession) View() PRDView {
	return PRDView{ID: s.id, CreatedAt: s.created, Snapshot: s.ctrl.Snapshot()}
}

func (s *PRDSession) Progress() float64 { return s.ctrl.Progress() }

// Start runs the first stream of a new generation and blocks until it is
// paused, completed or failed.
func (s *PRDSession) Start(ctx context.Context, req PRDRequest) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.setRequest(req)
	err := s.ctrl.Start(ctx, req.Mode, req.Prompt, req.Context, req.Sources)
	s.persist()
	return err
}

// StartAsync checks the request and runs Start in the background.
func (s *PRDSession) StartAsync(req PRDRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return generation.ErrEmptyPrompt
	}
	if err := s.begin(); err != nil {
		return err
	}

	s.setRequest(req)
	s.persist()
	s.background("start", func(ctx context.Context) error {
		return s.ctrl.Start(ctx, req.Mode, req.Prompt, req.Context, req.Sources)
	})
	return nil
}

func (s *PRDSession) Approve(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	err := s.ctrl.Approve(ctx)
	s.persist()
	return err
}

func (s *PRDSession) ApproveAsync() error {
	if s.ctrl.Snapshot().State != generation.StateAwaitingApproval {
		return generation.ErrNotAwaitingApproval
	}
	if err := s.begin(); err != nil {
		return err
	}

	s.background("approve", s.ctrl.Approve)
	return nil
}

func (s *PRDSession) background(op string, run func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.end()

		if err := run(s.ctx); err != nil {
			s.log.Warn("generation run failed", zap.String("op", op), zap.Error(err))
		}
		s.persist()
	}()
}

func (s *PRDSession) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return generation.ErrStreamBusy
	}
	s.running = true
	return nil
}

func (s *PRDSession) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *PRDSession) setRequest(req PRDRequest) {
	s.mu.Lock()
	s.req = req
	s.mu.Unlock()
}

// Abort cancels the open stream, if any.
func (s *PRDSession) Abort() bool {
	return s.ctrl.Abort()
}

// Wait blocks until background runs are done.
func (s *PRDSession) Wait() {
	s.wg.Wait()
}

func (s *PRDSession) Close() {
	s.cancel()
	s.ctrl.Abort()
	s.wg.Wait()
}

// BeginEdit opens a section for editing. Only one section of a session is
// edited at a time.
func (s *PRDSession) BeginEdit(id string) (types.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if editing, ok := s.sections.Editing(); ok && editing != id {
		return types.Section{}, ErrAlreadyEditing
	}
	return s.sections.BeginEdit(id)
}

func (s *PRDSession) SetDraft(id, text string) (types.Section, error) {
	return s.sections.SetDraft(id, text)
}

func (s *PRDSession) SaveEdit(id string) (types.Section, error) {
	sec, err := s.sections.SaveEdit(id)
	if err == nil {
		s.persist()
	}
	return sec, err
}

func (s *PRDSession) CancelEdit(id string) (types.Section, error) {
	return s.sections.CancelEdit(id)
}

func (s *PRDSession) Normalize(id string) (types.Section, error) {
	sec, err := s.sections.Normalize(id)
	if err == nil {
		s.persist()
	}
	return sec, err
}

func (s *PRDSession) Document(now time.Time) export.Document {
	return export.Transform(s.title, s.sections.Sections(), now)
}

func (s *PRDSession) WriteDOCX(w io.Writer, now time.Time) error {
	return export.WriteDOCX(w, s.Document(now))
}

func (s *PRDSession) Markdown(now time.Time) string {
	return export.Markdown(s.Document(now))
}

func (s *PRDSession) record() types.SessionRecord {
	snap := s.ctrl.Snapshot()
	s.mu.Lock()
	req := s.req
	s.mu.Unlock()

	return types.SessionRecord{
		ID:        s.id,
		Agent:     PRDAgentID,
		Mode:      req.Mode,
		Prompt:    req.Prompt,
		Context:   req.Context,
		Sources:   req.Sources,
		State:     string(snap.State),
		Cursor:    snap.Cursor,
		CreatedAt: s.created,
		UpdatedAt: time.Now().UTC(),
	}
}

// persist writes the session through to the storer. Failures are logged; the
// in-memory session stays authoritative.
func (s *PRDSession) persist() {
	if s.storer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.storer.SaveSession(ctx, s.record()); err != nil {
		s.log.Warn("failed to save session", zap.Error(err))
		return
	}
	if err := s.storer.SaveSections(ctx, s.id, s.sections.Sections()); err != nil {
		s.log.Warn("failed to save sections", zap.Error(err))
	}
}

// restore loads a persisted session.
func (s *PRDSession) restore(rec types.SessionRecord, sections []types.Section) error {
	s.created = rec.CreatedAt
	s.req = PRDRequest{Mode: rec.Mode, Prompt: rec.Prompt, Context: rec.Context, Sources: rec.Sources}
	return s.ctrl.Restore(generation.Resume{
		Mode:     rec.Mode,
		Prompt:   rec.Prompt,
		Context:  rec.Context,
		Sources:  rec.Sources,
		State:    generation.State(rec.State),
		Cursor:   rec.Cursor,
		Sections: sections,
	})
}
