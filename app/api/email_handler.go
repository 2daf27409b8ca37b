package api

import (
	"agenthub/app/agent"
	"agenthub/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EmailHandler struct {
	manager *agent.Manager
}

func NewEmailHandler(manager *agent.Manager) *EmailHandler {
	return &EmailHandler{manager: manager}
}

type emailResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	agent.EmailState
}

func (h *EmailHandler) HandleRespond(c *fiber.Ctx) error {
	var params types.RespondParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	id, s := h.manager.CreateEmail()
	state, err := s.Respond(c.UserContext(), params.EmailText, nil)
	if err != nil {
		return err
	}
	return c.JSON(emailResponse{SessionID: id, EmailState: state})
}

func (h *EmailHandler) HandleEvaluate(c *fiber.Ctx) error {
	var params types.EmailEvaluateParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	id, err := uuid.Parse(params.SessionID)
	if err != nil {
		return ErrInvalidID()
	}
	s, err := h.manager.Email(id)
	if err != nil {
		return err
	}
	if _, err := s.Evaluate(c.UserContext(), params.HumanResponse); err != nil {
		return err
	}
	return c.JSON(emailResponse{SessionID: id, EmailState: s.State()})
}
