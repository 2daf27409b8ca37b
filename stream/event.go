package stream

import (
	"encoding/json"
	"io"
	"strings"

	"agenthub/types"
)

type ContentKind int

const (
	ContentDelta ContentKind = iota
	ContentStatus
	ContentComplete
	ContentFailed
)

// ContentEvent is one payload of a plain-content stream (response generation,
// PRD review).
type ContentEvent struct {
	Kind   ContentKind
	Text   string
	Status string
	Err    string
}

type contentWire struct {
	Content *string `json:"content"`
	Status  string  `json:"status"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// DecodeContent narrows a payload of the content family. Invalid JSON and shapes
// carrying nothing of interest are rejected.
func DecodeContent(payload []byte) (ContentEvent, bool) {
	var w contentWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return ContentEvent{}, false
	}
	switch {
	case w.Error != "":
		return ContentEvent{Kind: ContentFailed, Err: w.Error}, true
	case w.Content != nil && *w.Content != "":
		return ContentEvent{Kind: ContentDelta, Text: *w.Content, Status: w.Status}, true
	case w.Status == "complete" || w.Done:
		return ContentEvent{Kind: ContentComplete, Status: w.Status}, true
	case w.Status != "":
		return ContentEvent{Kind: ContentStatus, Status: w.Status}, true
	}
	return ContentEvent{}, false
}

type SectionKind int

const (
	SectionDelivered SectionKind = iota
	SectionComplete
	SectionFailed
)

// SectionEvent is one payload of a document-generation stream.
type SectionEvent struct {
	Kind    SectionKind
	Section types.SectionPayload
	Message string
	Err     string
}

type sectionWire struct {
	Type      string `json:"type"`
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Order     int    `json:"order"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// DecodeSection narrows a payload of the section family. A section without an id
// is rejected since it cannot be upserted.
func DecodeSection(payload []byte) (SectionEvent, bool) {
	var w sectionWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return SectionEvent{}, false
	}
	switch w.Type {
	case "section":
		if w.SectionID == "" {
			return SectionEvent{}, false
		}
		return SectionEvent{
			Kind: SectionDelivered,
			Section: types.SectionPayload{
				ID:      w.SectionID,
				Title:   w.Title,
				Content: w.Content,
				Order:   w.Order,
			},
		}, true
	case "complete":
		return SectionEvent{Kind: SectionComplete, Message: w.Message}, true
	case "error":
		return SectionEvent{Kind: SectionFailed, Err: w.Error}, true
	}
	if w.Error != "" {
		return SectionEvent{Kind: SectionFailed, Err: w.Error}, true
	}
	return SectionEvent{}, false
}

// RemoteError is a failure the backend reported inside a content stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "backend error: " + e.Message
}

// ReadContent accumulates the deltas of a content stream. onDelta, when set,
// receives the text accumulated so far after every delta. complete reports
// whether a terminal completion was seen; a body that just ends is not an
// error, the caller decides what a missing completion means.
func ReadContent(r io.Reader, onDelta func(acc string)) (text string, complete bool, err error) {
	var (
		sb     strings.Builder
		remote *RemoteError
	)
	err = Each(r, DecodeContent, func(ev ContentEvent) bool {
		switch ev.Kind {
		case ContentDelta:
			sb.WriteString(ev.Text)
			if onDelta != nil {
				onDelta(sb.String())
			}
		case ContentComplete:
			complete = true
			return false
		case ContentFailed:
			remote = &RemoteError{Message: ev.Err}
			return false
		}
		return true
	})
	if err == nil && remote != nil {
		err = remote
	}
	return sb.String(), complete, err
}
