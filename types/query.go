package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

// validateStruct runs the tag rules and flattens the failures into field -> reason.
func validateStruct(params any) map[string]string {
	if err := validate.Struct(params); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type ParseEmailParams struct {
	EmailText string `json:"email_text" validate:"required"`
}

type GenerateResponseParams struct {
	Question string `json:"question" validate:"required"`
	Context  string `json:"context"`
}

type EvaluateParams struct {
	Question      string `json:"question" validate:"required"`
	HumanResponse string `json:"human_response" validate:"required"`
	Context       string `json:"context"`
}

// PRDCreateParams is the body of /api/prd/create-stream.
type PRDCreateParams struct {
	Prompt      string              `json:"prompt" validate:"required"`
	Context     string              `json:"context"`
	DataSources []DataSourcePayload `json:"data_sources" validate:"dive"`
}

// PRDContinueParams is the body of /api/prd/continue-generation. PreviousSections
// maps section title to the content currently held by the client.
type PRDContinueParams struct {
	Prompt           string              `json:"prompt" validate:"required"`
	Context          string              `json:"context"`
	DataSources      []DataSourcePayload `json:"data_sources" validate:"dive"`
	PreviousSections map[string]string   `json:"previous_sections"`
	StartFromIndex   int                 `json:"start_from_index" validate:"gte=0"`
}

type PRDReviewParams struct {
	PRDText string `json:"prd_text" validate:"required"`
	Context string `json:"context"`
}

type BlogCreateParams struct {
	BlogType          string `json:"blog_type" validate:"required"`
	RawContent        string `json:"raw_content" validate:"required"`
	Title             string `json:"title"`
	TargetAudience    string `json:"target_audience"`
	AdditionalContext string `json:"additional_context"`
}

type BlogReviewParams struct {
	BlogContent string `json:"blog_content" validate:"required"`
	BlogType    string `json:"blog_type" validate:"required"`
}

// SessionParams opens a PRD session on the front-end server.
type SessionParams struct {
	Mode        string              `json:"mode" validate:"omitempty,oneof=auto manual"`
	Prompt      string              `json:"prompt" validate:"required"`
	Context     string              `json:"context"`
	DataSources []DataSourcePayload `json:"data_sources" validate:"dive"`
}

type DraftParams struct {
	Content string `json:"content"`
}

type TextSourceParams struct {
	Name    string `json:"name"`
	Content string `json:"content" validate:"required"`
}

type URLSourceParams struct {
	URL string `json:"url" validate:"required,url"`
}

type RespondParams struct {
	EmailText string `json:"email_text" validate:"required"`
}

type EmailEvaluateParams struct {
	SessionID     string `json:"session_id" validate:"required,uuid"`
	HumanResponse string `json:"human_response" validate:"required"`
}

func (params *ParseEmailParams) Validate() map[string]string       { return validateStruct(params) }
func (params *GenerateResponseParams) Validate() map[string]string { return validateStruct(params) }
func (params *EvaluateParams) Validate() map[string]string         { return validateStruct(params) }
func (params *PRDCreateParams) Validate() map[string]string        { return validateStruct(params) }
func (params *PRDContinueParams) Validate() map[string]string      { return validateStruct(params) }
func (params *PRDReviewParams) Validate() map[string]string        { return validateStruct(params) }
func (params *BlogCreateParams) Validate() map[string]string       { return validateStruct(params) }
func (params *BlogReviewParams) Validate() map[string]string       { return validateStruct(params) }
func (params *SessionParams) Validate() map[string]string          { return validateStruct(params) }
func (params *TextSourceParams) Validate() map[string]string       { return validateStruct(params) }
func (params *URLSourceParams) Validate() map[string]string        { return validateStruct(params) }
func (params *RespondParams) Validate() map[string]string          { return validateStruct(params) }
func (params *EmailEvaluateParams) Validate() map[string]string    { return validateStruct(params) }
