package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"agenthub/types"
)

// APIError is a non-OK answer of the backend. Message is the "error" field of
// the JSON body when there is one, the raw body otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: status %d: %s", e.Status, e.Message)
}

// Backend is the HTTP client of the agent backend.
type Backend struct {
	baseURL string
	client  *http.Client
}

// NewBackend returns a client for the backend at baseURL. A nil client means
// http.DefaultClient; no timeout is set on streams here, callers bound them
// through the request context.
func NewBackend(baseURL string, client *http.Client) *Backend {
	if client == nil {
		client = http.DefaultClient
	}
	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (b *Backend) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func (b *Backend) getJSON(ctx context.Context, path string, out any) error {
	return b.callJSON(ctx, http.MethodGet, path, nil, out)
}

func (b *Backend) postJSON(ctx context.Context, path string, in, out any) error {
	return b.callJSON(ctx, http.MethodPost, path, in, out)
}

func (b *Backend) callJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := b.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// openStream posts in and hands back the body of a streamed answer. The caller
// closes it.
func (b *Backend) openStream(ctx context.Context, path string, in any) (io.ReadCloser, error) {
	resp, err := b.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (b *Backend) Health(ctx context.Context) error {
	var out map[string]any
	return b.getJSON(ctx, "/api/health", &out)
}

func (b *Backend) Assistants(ctx context.Context) ([]types.Agent, error) {
	var out []types.Agent
	if err := b.getJSON(ctx, "/api/assistants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) ParseEmail(ctx context.Context, params types.ParseEmailParams) (types.ParsedEmail, error) {
	var out types.ParsedEmail
	err := b.postJSON(ctx, "/api/parse-email", params, &out)
	return out, err
}

func (b *Backend) GenerateResponseStream(ctx context.Context, params types.GenerateResponseParams) (io.ReadCloser, error) {
	return b.openStream(ctx, "/api/generate-response", params)
}

func (b *Backend) Evaluate(ctx context.Context, params types.EvaluateParams) (types.EvaluationResult, error) {
	var out types.EvaluationResult
	err := b.postJSON(ctx, "/api/evaluate", params, &out)
	return out, err
}

func (b *Backend) BlogTypes(ctx context.Context) ([]types.BlogType, error) {
	var out struct {
		BlogTypes []types.BlogType `json:"blog_types"`
	}
	if err := b.getJSON(ctx, "/api/blog/types", &out); err != nil {
		return nil, err
	}
	return out.BlogTypes, nil
}

// CreateBlog returns the generated post. The blog endpoints may report a
// failure in the body of an OK answer; that is returned as an APIError too.
func (b *Backend) CreateBlog(ctx context.Context, params types.BlogCreateParams) (types.BlogCreateResult, error) {
	var out types.BlogCreateResult
	if err := b.postJSON(ctx, "/api/blog/create", params, &out); err != nil {
		return out, err
	}
	if out.Error != "" {
		return out, &APIError{Status: http.StatusOK, Message: out.Error}
	}
	return out, nil
}

func (b *Backend) ReviewBlog(ctx context.Context, params types.BlogReviewParams) (types.BlogReviewResult, error) {
	var out types.BlogReviewResult
	if err := b.postJSON(ctx, "/api/blog/review", params, &out); err != nil {
		return out, err
	}
	if out.Error != "" {
		return out, &APIError{Status: http.StatusOK, Message: out.Error}
	}
	return out, nil
}

func (b *Backend) CreatePRDStream(ctx context.Context, params types.PRDCreateParams) (io.ReadCloser, error) {
	return b.openStream(ctx, "/api/prd/create-stream", params)
}

func (b *Backend) ContinuePRDStream(ctx context.Context, params types.PRDContinueParams) (io.ReadCloser, error) {
	return b.openStream(ctx, "/api/prd/continue-generation", params)
}

func (b *Backend) ReviewPRDStream(ctx context.Context, params types.PRDReviewParams) (io.ReadCloser, error) {
	return b.openStream(ctx, "/api/prd/review-stream", params)
}
