package types

import (
	"time"

	"github.com/google/uuid"
)

type SectionStatus string

const (
	StatusPending    SectionStatus = "pending"
	StatusGenerating SectionStatus = "generating"
	StatusComplete   SectionStatus = "complete"
	StatusEditing    SectionStatus = "editing"
)

type GenerationMode string

const (
	ModeAuto   GenerationMode = "auto"
	ModeManual GenerationMode = "manual"
)

// ParseMode maps a user supplied mode onto a GenerationMode, defaulting to auto.
func ParseMode(s string) GenerationMode {
	if GenerationMode(s) == ModeManual {
		return ModeManual
	}
	return ModeAuto
}

// Section is one titled, ordered unit of a generated document.
type Section struct {
	ID         string        `json:"section_id"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	Order      int           `json:"order"`
	Status     SectionStatus `json:"status"`
	EditBuffer string        `json:"edit_content,omitempty"`
}

// SectionPayload is a section as delivered by the section stream.
type SectionPayload struct {
	ID      string `json:"section_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceText SourceType = "text"
)

type SourceStatus string

const (
	SourceReady      SourceStatus = "ready"
	SourceProcessing SourceStatus = "processing"
	SourceError      SourceStatus = "error"
)

type DataSource struct {
	ID      uuid.UUID    `json:"id"`
	Type    SourceType   `json:"type"`
	Name    string       `json:"name"`
	Content string       `json:"content"`
	Status  SourceStatus `json:"status"`
}

// DataSourcePayload is the subset of a data source the backend receives.
type DataSourcePayload struct {
	Type    SourceType `json:"type" validate:"required,oneof=file url text"`
	Name    string     `json:"name"`
	Content string     `json:"content"`
}

func (d DataSource) Payload() DataSourcePayload {
	return DataSourcePayload{Type: d.Type, Name: d.Name, Content: d.Content}
}

func Payloads(sources []DataSource) []DataSourcePayload {
	out := make([]DataSourcePayload, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Payload())
	}
	return out
}

type ParsedEmail struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type ResponseScores struct {
	TechnicalAccuracy float64 `json:"technical_accuracy"`
	Completeness      float64 `json:"completeness"`
	Clarity           float64 `json:"clarity"`
	PracticalValue    float64 `json:"practical_value"`
	ProfessionalTone  float64 `json:"professional_tone"`
	EvidenceCitations float64 `json:"evidence_citations"`
	Total             float64 `json:"total"`
}

type Evaluation struct {
	OverallWinner    string `json:"overall_winner"`
	OverallReasoning string `json:"overall_reasoning"`
	Scores           struct {
		ResponseA ResponseScores `json:"response_a"`
		ResponseB ResponseScores `json:"response_b"`
	} `json:"scores"`
	DetailedAnalysis struct {
		ResponseAStrengths  []string `json:"response_a_strengths"`
		ResponseAWeaknesses []string `json:"response_a_weaknesses"`
		ResponseBStrengths  []string `json:"response_b_strengths"`
		ResponseBWeaknesses []string `json:"response_b_weaknesses"`
	} `json:"detailed_analysis"`
	SpecificFeedback struct {
		ResponseA string `json:"response_a"`
		ResponseB string `json:"response_b"`
	} `json:"specific_feedback"`
}

type ResponseLabels struct {
	ResponseA string `json:"response_a"`
	ResponseB string `json:"response_b"`
}

type EvaluationResult struct {
	EvaluationID  string         `json:"evaluation_id"`
	Question      string         `json:"question"`
	AIResponse    string         `json:"ai_response"`
	HumanResponse string         `json:"human_response"`
	Evaluation    Evaluation     `json:"evaluation"`
	Labels        ResponseLabels `json:"labels"`
	Winner        string         `json:"winner"`
	Timestamp     string         `json:"timestamp"`
}

// SideView is one response of an evaluation, resolved through the labels.
type SideView struct {
	Label      string
	Scores     ResponseScores
	Strengths  []string
	Weaknesses []string
	Feedback   string
}

// Side resolves which of response_a/response_b carries the given label ("AI",
// "Human"). The second result is false when neither side has that label.
func (r EvaluationResult) Side(label string) (SideView, bool) {
	e := r.Evaluation
	switch label {
	case r.Labels.ResponseA:
		return SideView{
			Label:      r.Labels.ResponseA,
			Scores:     e.Scores.ResponseA,
			Strengths:  e.DetailedAnalysis.ResponseAStrengths,
			Weaknesses: e.DetailedAnalysis.ResponseAWeaknesses,
			Feedback:   e.SpecificFeedback.ResponseA,
		}, true
	case r.Labels.ResponseB:
		return SideView{
			Label:      r.Labels.ResponseB,
			Scores:     e.Scores.ResponseB,
			Strengths:  e.DetailedAnalysis.ResponseBStrengths,
			Weaknesses: e.DetailedAnalysis.ResponseBWeaknesses,
			Feedback:   e.SpecificFeedback.ResponseB,
		}, true
	}
	return SideView{}, false
}

type AgentStatus string

const (
	AgentActive     AgentStatus = "active"
	AgentComingSoon AgentStatus = "coming-soon"
)

type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Status      AgentStatus `json:"status"`
}

type BlogType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Guidelines  string `json:"guidelines"`
	Audience    string `json:"audience"`
}

type BlogMetadata struct {
	EstimatedReadTime int    `json:"estimated_read_time"`
	WordCount         int    `json:"word_count"`
	HasCodeBlocks     bool   `json:"has_code_blocks"`
	HasImages         bool   `json:"has_images"`
	HasLinks          bool   `json:"has_links"`
	HasFrontMatter    bool   `json:"has_front_matter,omitempty"`
	FrontMatter       string `json:"front_matter,omitempty"`
}

type BlogCreateResult struct {
	BlogContent string       `json:"blog_content"`
	Metadata    BlogMetadata `json:"metadata"`
	Error       string       `json:"error,omitempty"`
}

type StructuredFeedback struct {
	OverallAssessment   string   `json:"overall_assessment"`
	Strengths           []string `json:"strengths"`
	Improvements        []string `json:"improvements"`
	Suggestions         []string `json:"suggestions"`
	PublishingReadiness string   `json:"publishing_readiness"`
}

type BlogReviewResult struct {
	Review             string             `json:"review"`
	StructuredFeedback StructuredFeedback `json:"structured_feedback"`
	Error              string             `json:"error,omitempty"`
}

// SessionRecord is the persisted header of a front-end session.
type SessionRecord struct {
	ID        uuid.UUID
	Agent     string
	Mode      GenerationMode
	Prompt    string
	Context   string
	Sources   []DataSourcePayload
	State     string
	Cursor    int
	CreatedAt time.Time
	UpdatedAt time.Time
}
