package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agenthub/types"
)

type BlogMode string

const (
	BlogCreate BlogMode = "create"
	BlogReview BlogMode = "review"
)

var (
	ErrBlogCreateInput = errors.New("please select a blog type and provide content")
	ErrBlogReviewInput = errors.New("please select a blog type and provide blog content to review")
)

type BlogBackend interface {
	BlogTypes(ctx context.Context) ([]types.BlogType, error)
	CreateBlog(ctx context.Context, params types.BlogCreateParams) (types.BlogCreateResult, error)
	ReviewBlog(ctx context.Context, params types.BlogReviewParams) (types.BlogReviewResult, error)
}

// Blog fronts the blog endpoints. Blog types are fetched once.
type Blog struct {
	backend BlogBackend

	mu    sync.Mutex
	types []types.BlogType
}

func NewBlog(backend BlogBackend) *Blog {
	return &Blog{backend: backend}
}

func (b *Blog) Types(ctx context.Context) ([]types.BlogType, error) {
	b.mu.Lock()
	cached := b.types
	b.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	bt, err := b.backend.BlogTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load blog types: %w", err)
	}
	if bt == nil {
		bt = []types.BlogType{}
	}
	b.mu.Lock()
	b.types = bt
	b.mu.Unlock()
	return bt, nil
}

func (b *Blog) Create(ctx context.Context, params types.BlogCreateParams) (types.BlogCreateResult, error) {
	if params.BlogType == "" || strings.TrimSpace(params.RawContent) == "" {
		return types.BlogCreateResult{}, ErrBlogCreateInput
	}
	return b.backend.CreateBlog(ctx, params)
}

func (b *Blog) Review(ctx context.Context, params types.BlogReviewParams) (types.BlogReviewResult, error) {
	if params.BlogType == "" || strings.TrimSpace(params.BlogContent) == "" {
		return types.BlogReviewResult{}, ErrBlogReviewInput
	}
	return b.backend.ReviewBlog(ctx, params)
}

// BlogMarkdown returns the download name and content of a blog result. Reviews
// get a "# Review" heading.
func BlogMarkdown(mode BlogMode, content string, now time.Time) (name, body string) {
	body = content
	if mode == BlogReview {
		body = "# Review\n\n" + content
	}
	return fmt.Sprintf("blog-%s-%d.md", mode, now.UnixMilli()), body
}
