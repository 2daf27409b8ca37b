package agent

import (
	"sync"

	"agenthub/types"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter counts the tokens of a text.
type TokenCounter func(text string) int

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens counts with the gpt-3.5-turbo encoding. When the encoding cannot
// be loaded it falls back to four bytes per token.
func CountTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Budget caps the context carried by a continuation request. Previous
// sections are the document itself and are always sent; data sources fill the
// rest of the limit in order and the first one that does not fit is cut.
type Budget struct {
	Limit int
	Count TokenCounter
	Log   *zap.Logger
}

func (b Budget) count(text string) int {
	if b.Count == nil {
		return CountTokens(text)
	}
	return b.Count(text)
}

// Fit trims params in place. A zero limit disables it.
func (b Budget) Fit(params *types.PRDContinueParams) {
	if b.Limit <= 0 {
		return
	}

	used := b.count(params.Prompt) + b.count(params.Context)
	for title, content := range params.PreviousSections {
		used += b.count(title) + b.count(content)
	}

	remain := b.Limit - used
	trimmed := false
	kept := make([]types.DataSourcePayload, 0, len(params.DataSources))
	for _, ds := range params.DataSources {
		n := b.count(ds.Content)
		switch {
		case n <= remain:
			kept = append(kept, ds)
			remain -= n
		case remain > 0:
			ds.Content = truncateRunes(ds.Content, remain, n)
			kept = append(kept, ds)
			remain = 0
			trimmed = true
		default:
			trimmed = true
		}
	}

	if trimmed {
		b.logger().Info("continuation context trimmed",
			zap.Int("limit", b.Limit),
			zap.Int("sections_tokens", used),
			zap.Int("sources_before", len(params.DataSources)),
			zap.Int("sources_after", len(kept)))
	}
	params.DataSources = kept
}

func (b Budget) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

// truncateRunes keeps the share want/have of the runes of s.
func truncateRunes(s string, want, have int) string {
	r := []rune(s)
	n := len(r) * want / have
	if n >= len(r) {
		return s
	}
	return string(r[:n])
}
