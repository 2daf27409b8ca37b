package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"agenthub/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailBackend struct {
	parseErr error
	stream   string
	evalErr  error
	evalIn   types.EvaluateParams
}

func (f *fakeEmailBackend) ParseEmail(ctx context.Context, params types.ParseEmailParams) (types.ParsedEmail, error) {
	if f.parseErr != nil {
		return types.ParsedEmail{}, f.parseErr
	}
	return types.ParsedEmail{Question: "Why do pods crash?", Context: "AKS 1.29"}, nil
}

func (f *fakeEmailBackend) GenerateResponseStream(ctx context.Context, params types.GenerateResponseParams) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func (f *fakeEmailBackend) Evaluate(ctx context.Context, params types.EvaluateParams) (types.EvaluationResult, error) {
	f.evalIn = params
	if f.evalErr != nil {
		return types.EvaluationResult{}, f.evalErr
	}
	return types.EvaluationResult{Winner: "AI", Labels: types.ResponseLabels{ResponseA: "AI", ResponseB: "Human"}}, nil
}

const answerStream = "data: {\"content\":\"Check \"}\n" +
	"data: {\"content\":\"the limits.\"}\n" +
	"data: {\"status\":\"complete\"}\n"

func TestEmailFlow(t *testing.T) {
	b := &fakeEmailBackend{stream: answerStream}
	s := NewEmailSession(b, nil)
	ctx := context.Background()

	var deltas []string
	st, err := s.Respond(ctx, "Hi, our pods crash", func(acc string) { deltas = append(deltas, acc) })
	require.NoError(t, err)
	assert.Equal(t, StepAIResponse, st.Step)
	assert.Equal(t, "Check the limits.", st.AIResponse)
	assert.Equal(t, []string{"Check ", "Check the limits."}, deltas)

	require.NoError(t, s.Compare())
	assert.Equal(t, StepComparison, s.State().Step)

	res, err := s.Evaluate(ctx, "Raise the memory limit")
	require.NoError(t, err)
	assert.Equal(t, "AI", res.Winner)
	assert.Equal(t, StepResults, s.State().Step)
	assert.Equal(t, "AKS 1.29", b.evalIn.Context)
	assert.Equal(t, "Why do pods crash?", b.evalIn.Question)

	side, ok := s.State().Result.Side("Human")
	require.True(t, ok)
	assert.Equal(t, "Human", side.Label)

	s.Reset()
	assert.Equal(t, EmailState{Step: StepInput}, s.State())
}

func TestEmailRespondRevertsToInput(t *testing.T) {
	ctx := context.Background()

	s := NewEmailSession(&fakeEmailBackend{parseErr: errors.New("down")}, nil)
	_, err := s.Respond(ctx, "text", nil)
	assert.Error(t, err)
	assert.Equal(t, StepInput, s.State().Step)

	s = NewEmailSession(&fakeEmailBackend{stream: "data: {\"error\":\"quota exceeded\"}\n"}, nil)
	_, err = s.Respond(ctx, "text", nil)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, StepInput, s.State().Step)

	_, err = s.Respond(ctx, "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyEmail)
}

func TestEmailEvaluateRevertsToComparison(t *testing.T) {
	ctx := context.Background()
	s := NewEmailSession(&fakeEmailBackend{stream: answerStream, evalErr: errors.New("timeout")}, nil)

	_, err := s.Evaluate(ctx, "human")
	assert.ErrorIs(t, err, ErrMissingForEval)
	assert.ErrorIs(t, s.Compare(), ErrMissingForEval)

	_, err = s.Respond(ctx, "text", nil)
	require.NoError(t, err)

	_, err = s.Evaluate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingForEval)

	_, err = s.Evaluate(ctx, "human")
	assert.Error(t, err)
	assert.Equal(t, StepComparison, s.State().Step)
	assert.Nil(t, s.State().Result)
}

type fakeBlogBackend struct {
	typeCalls int
}

func (f *fakeBlogBackend) BlogTypes(ctx context.Context) ([]types.BlogType, error) {
	f.typeCalls++
	return []types.BlogType{{ID: "tutorial", Name: "Tutorial"}}, nil
}

func (f *fakeBlogBackend) CreateBlog(ctx context.Context, params types.BlogCreateParams) (types.BlogCreateResult, error) {
	return types.BlogCreateResult{BlogContent: "# " + params.Title}, nil
}

func (f *fakeBlogBackend) ReviewBlog(ctx context.Context, params types.BlogReviewParams) (types.BlogReviewResult, error) {
	return types.BlogReviewResult{Review: "Looks good"}, nil
}

func TestBlog(t *testing.T) {
	ctx := context.Background()
	f := &fakeBlogBackend{}
	b := NewBlog(f)

	for range 2 {
		bt, err := b.Types(ctx)
		require.NoError(t, err)
		assert.Len(t, bt, 1)
	}
	assert.Equal(t, 1, f.typeCalls)

	_, err := b.Create(ctx, types.BlogCreateParams{BlogType: "tutorial", RawContent: "  "})
	assert.ErrorIs(t, err, ErrBlogCreateInput)
	assert.EqualError(t, ErrBlogCreateInput, "please select a blog type and provide content")

	res, err := b.Create(ctx, types.BlogCreateParams{BlogType: "tutorial", RawContent: "notes", Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "# Hello", res.BlogContent)

	_, err = b.Review(ctx, types.BlogReviewParams{BlogContent: "post"})
	assert.ErrorIs(t, err, ErrBlogReviewInput)
	rev, err := b.Review(ctx, types.BlogReviewParams{BlogContent: "post", BlogType: "tutorial"})
	require.NoError(t, err)
	assert.Equal(t, "Looks good", rev.Review)
}

func TestBlogMarkdown(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	name, body := BlogMarkdown(BlogCreate, "# Post", now)
	assert.Equal(t, "blog-create-1700000000123.md", name)
	assert.Equal(t, "# Post", body)

	name, body = BlogMarkdown(BlogReview, "Fine.", now)
	assert.Equal(t, "blog-review-1700000000123.md", name)
	assert.Equal(t, "# Review\n\nFine.", body)
}

type fakeCatalog struct {
	agents []types.Agent
	err    error
}

func (f fakeCatalog) Assistants(ctx context.Context) ([]types.Agent, error) {
	return f.agents, f.err
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	remote := []types.Agent{{ID: "x", Status: types.AgentComingSoon}}

	assert.Equal(t, remote, Catalog(ctx, fakeCatalog{agents: remote}, nil))

	got := Catalog(ctx, fakeCatalog{err: errors.New("down")}, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "aks-support", got[0].ID)
	assert.Equal(t, "prd-writer", got[1].ID)
	assert.Equal(t, "prd-builder", got[2].ID)

	assert.Len(t, Catalog(ctx, fakeCatalog{}, nil), 3)
}
