package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"agenthub/stream"
	"agenthub/types"

	"go.uber.org/zap"
)

const EmailAgentID = "aks-support"

type EmailStep string

const (
	StepInput      EmailStep = "input"
	StepAIResponse EmailStep = "ai-response"
	StepComparison EmailStep = "comparison"
	StepResults    EmailStep = "results"
)

var (
	ErrEmptyEmail       = errors.New("please paste an email to parse")
	ErrMissingForEval   = errors.New("missing required data for comparison")
	ErrIncompleteAnswer = errors.New("AI response ended before completion")
)

type EmailBackend interface {
	ParseEmail(ctx context.Context, params types.ParseEmailParams) (types.ParsedEmail, error)
	GenerateResponseStream(ctx context.Context, params types.GenerateResponseParams) (io.ReadCloser, error)
	Evaluate(ctx context.Context, params types.EvaluateParams) (types.EvaluationResult, error)
}

// EmailState is a consistent view of an email session.
type EmailState struct {
	Step          EmailStep               `json:"step"`
	Question      string                  `json:"question"`
	Context       string                  `json:"context"`
	AIResponse    string                  `json:"ai_response"`
	HumanResponse string                  `json:"human_response,omitempty"`
	Result        *types.EvaluationResult `json:"result,omitempty"`
}

// EmailSession walks the support flow: parse an email, stream the AI answer,
// compare it with a human answer. A failing step reverts to the one before.
type EmailSession struct {
	backend EmailBackend
	log     *zap.Logger

	mu    sync.Mutex
	state EmailState
}

func NewEmailSession(backend EmailBackend, log *zap.Logger) *EmailSession {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailSession{
		backend: backend,
		log:     log,
		state:   EmailState{Step: StepInput},
	}
}

func (s *EmailSession) State() EmailState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *EmailSession) setStep(step EmailStep) {
	s.mu.Lock()
	s.state.Step = step
	s.mu.Unlock()
}

// Respond parses the email and streams the AI answer. onDelta, if set, gets
// the accumulated answer after every chunk.
func (s *EmailSession) Respond(ctx context.Context, emailText string, onDelta func(string)) (EmailState, error) {
	if strings.TrimSpace(emailText) == "" {
		return s.State(), ErrEmptyEmail
	}

	s.mu.Lock()
	s.state = EmailState{Step: StepAIResponse}
	s.mu.Unlock()

	state, err := s.respond(ctx, emailText, onDelta)
	if err != nil {
		s.setStep(StepInput)
		s.log.Warn("email response failed", zap.Error(err))
		return s.State(), err
	}
	return state, nil
}

func (s *EmailSession) respond(ctx context.Context, emailText string, onDelta func(string)) (EmailState, error) {
	parsed, err := s.backend.ParseEmail(ctx, types.ParseEmailParams{EmailText: emailText})
	if err != nil {
		return EmailState{}, fmt.Errorf("failed to parse email: %w", err)
	}

	s.mu.Lock()
	s.state.Question = parsed.Question
	s.state.Context = parsed.Context
	s.mu.Unlock()

	body, err := s.backend.GenerateResponseStream(ctx, types.GenerateResponseParams{
		Question: parsed.Question,
		Context:  parsed.Context,
	})
	if err != nil {
		return EmailState{}, fmt.Errorf("failed to generate AI response: %w", err)
	}
	defer body.Close()

	text, complete, err := stream.ReadContent(body, onDelta)
	if err != nil {
		return EmailState{}, fmt.Errorf("failed to generate AI response: %w", err)
	}
	if !complete {
		s.log.Warn("AI response stream ended without completion", zap.Int("len", len(text)))
	}
	if strings.TrimSpace(text) == "" {
		return EmailState{}, ErrIncompleteAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AIResponse = text
	return s.state, nil
}

// Compare moves to the comparison step where the human answer is written.
func (s *EmailSession) Compare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.AIResponse == "" {
		return ErrMissingForEval
	}
	s.state.Step = StepComparison
	return nil
}

// Evaluate compares the AI answer with humanResponse.
func (s *EmailSession) Evaluate(ctx context.Context, humanResponse string) (types.EvaluationResult, error) {
	s.mu.Lock()
	st := s.state
	if strings.TrimSpace(st.Question) == "" || strings.TrimSpace(humanResponse) == "" || strings.TrimSpace(st.AIResponse) == "" {
		s.mu.Unlock()
		return types.EvaluationResult{}, ErrMissingForEval
	}
	s.state.Step = StepResults
	s.state.HumanResponse = humanResponse
	s.state.Result = nil
	s.mu.Unlock()

	res, err := s.backend.Evaluate(ctx, types.EvaluateParams{
		Question:      st.Question,
		HumanResponse: humanResponse,
		Context:       st.Context,
	})
	if err != nil {
		s.setStep(StepComparison)
		s.log.Warn("evaluation failed", zap.Error(err))
		return types.EvaluationResult{}, fmt.Errorf("failed to evaluate responses: %w", err)
	}

	s.mu.Lock()
	s.state.Result = &res
	s.mu.Unlock()
	return res, nil
}

func (s *EmailSession) Reset() {
	s.mu.Lock()
	s.state = EmailState{Step: StepInput}
	s.mu.Unlock()
}
