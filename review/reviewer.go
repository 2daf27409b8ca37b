package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"agenthub/stream"
	"agenthub/types"

	"go.uber.org/zap"
)

var ErrEmptyDocument = errors.New("document text is required")

type Streamer interface {
	ReviewPRDStream(ctx context.Context, params types.PRDReviewParams) (io.ReadCloser, error)
}

type Result struct {
	Summary  string    `json:"summary"`
	Comments []Comment `json:"comments"`
	Score    int       `json:"score"`
}

// Update is handed to the caller after every streamed delta.
type Update struct {
	Text     string
	Comments []Comment
}

type Reviewer struct {
	streamer Streamer
	log      *zap.Logger
}

func NewReviewer(streamer Streamer, log *zap.Logger) *Reviewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reviewer{streamer: streamer, log: log}
}

// Review streams a review of prdText. Comments are recomputed from the whole
// accumulated text on every delta. A stream that ends without a completion still
// yields a result built from what arrived.
func (r *Reviewer) Review(ctx context.Context, prdText, docContext string, onUpdate func(Update)) (Result, error) {
	if strings.TrimSpace(prdText) == "" {
		return Result{}, ErrEmptyDocument
	}

	body, err := r.streamer.ReviewPRDStream(ctx, types.PRDReviewParams{PRDText: prdText, Context: docContext})
	if err != nil {
		return Result{}, fmt.Errorf("open review stream: %w", err)
	}
	defer body.Close()

	parser := NewParser(prdText)
	text, complete, err := stream.ReadContent(body, func(acc string) {
		comments := parser.Parse(acc)
		if onUpdate != nil {
			onUpdate(Update{Text: acc, Comments: comments})
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("review stream: %w", err)
	}
	if !complete {
		r.log.Warn("review stream ended without completion", zap.Int("length", len(text)))
	}

	res := Result{
		Summary:  text,
		Comments: parser.Parse(text),
		Score:    QualityScore(text),
	}
	r.log.Info("review finished",
		zap.Int("comments", len(res.Comments)),
		zap.Int("score", res.Score))
	return res, nil
}
