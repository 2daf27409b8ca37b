package api

import (
	"bytes"
	"fmt"
	"time"

	"agenthub/app/agent"
	"agenthub/export"
	"agenthub/review"
	"agenthub/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type PRDHandler struct {
	manager       *agent.Manager
	reviewer      *review.Reviewer
	context       string
	reviewContext string
	now           func() time.Time
}

func NewPRDHandler(manager *agent.Manager, reviewer *review.Reviewer, context, reviewContext string) *PRDHandler {
	return &PRDHandler{
		manager:       manager,
		reviewer:      reviewer,
		context:       context,
		reviewContext: reviewContext,
		now:           time.Now,
	}
}

func (h *PRDHandler) session(c *fiber.Ctx) (*agent.PRDSession, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, ErrInvalidID()
	}
	return h.manager.PRD(c.UserContext(), id)
}

// HandleCreate opens a session and starts its first run in the background.
func (h *PRDHandler) HandleCreate(c *fiber.Ctx) error {
	var params types.SessionParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	docContext := params.Context
	if docContext == "" {
		docContext = h.context
	}

	s := h.manager.CreatePRD()
	err := s.StartAsync(agent.PRDRequest{
		Mode:    types.ParseMode(params.Mode),
		Prompt:  params.Prompt,
		Context: docContext,
		Sources: params.DataSources,
	})
	if err != nil {
		h.manager.DeletePRD(c.UserContext(), s.ID())
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(s.View())
}

func (h *PRDHandler) HandleGet(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.View())
}

func (h *PRDHandler) HandleApprove(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.ApproveAsync(); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(s.View())
}

func (h *PRDHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}
	if err := h.manager.DeletePRD(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PRDHandler) sectionOp(c *fiber.Ctx, op func(s *agent.PRDSession, id string) (types.Section, error)) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	sec, err := op(s, c.Params("sid"))
	if err != nil {
		return err
	}
	return c.JSON(sec)
}

func (h *PRDHandler) HandleBeginEdit(c *fiber.Ctx) error {
	return h.sectionOp(c, (*agent.PRDSession).BeginEdit)
}

func (h *PRDHandler) HandleDraft(c *fiber.Ctx) error {
	var params types.DraftParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	return h.sectionOp(c, func(s *agent.PRDSession, id string) (types.Section, error) {
		return s.SetDraft(id, params.Content)
	})
}

func (h *PRDHandler) HandleSave(c *fiber.Ctx) error {
	return h.sectionOp(c, (*agent.PRDSession).SaveEdit)
}

func (h *PRDHandler) HandleCancel(c *fiber.Ctx) error {
	return h.sectionOp(c, (*agent.PRDSession).CancelEdit)
}

func (h *PRDHandler) HandleNormalize(c *fiber.Ctx) error {
	return h.sectionOp(c, (*agent.PRDSession).Normalize)
}

func (h *PRDHandler) HandleExport(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	now := h.now()
	var buf bytes.Buffer
	if err := s.WriteDOCX(&buf, now); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, docxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	return c.Send(buf.Bytes())
}

func (h *PRDHandler) HandleMarkdown(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(s.Markdown(h.now()))
}

// HandleReview streams a review of the posted document and answers with the
// collected result.
func (h *PRDHandler) HandleReview(c *fiber.Ctx) error {
	var params types.PRDReviewParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	docContext := params.Context
	if docContext == "" {
		docContext = h.reviewContext
	}
	res, err := h.reviewer.Review(c.UserContext(), params.PRDText, docContext, nil)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
