package api

import (
	"errors"
	"net/http"

	"agenthub/app/agent"
	"agenthub/generation"
	"agenthub/loader"
	"agenthub/model"
	"agenthub/review"
	"agenthub/section"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewErrorHandler renders API, validation and domain errors as JSON. Anything
// unknown is a 500.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var valErr ValidationError
		if errors.As(err, &valErr) {
			return c.Status(valErr.Status).JSON(valErr)
		}

		apiErr := toAPIError(err)
		if apiErr.Code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("code", apiErr.Code),
				zap.Error(err))
		} else {
			log.Debug("request rejected",
				zap.String("path", c.Path()),
				zap.Int("code", apiErr.Code),
				zap.String("error", apiErr.Message))
		}
		return c.Status(apiErr.Code).JSON(apiErr)
	}
}

func toAPIError(err error) Error {
	var (
		apiErr     Error
		fiberErr   *fiber.Error
		backendErr *model.APIError
		serverErr  *generation.ServerError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fiberErr):
		return NewError(fiberErr.Code, fiberErr.Message)
	case errors.Is(err, agent.ErrSessionNotFound),
		errors.Is(err, section.ErrSectionNotFound):
		return NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, generation.ErrStreamBusy),
		errors.Is(err, generation.ErrNotAwaitingApproval),
		errors.Is(err, section.ErrInvalidTransition),
		errors.Is(err, agent.ErrAlreadyEditing):
		return NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, generation.ErrEmptyPrompt),
		errors.Is(err, review.ErrEmptyDocument),
		errors.Is(err, agent.ErrEmptyEmail),
		errors.Is(err, agent.ErrMissingForEval),
		errors.Is(err, agent.ErrBlogCreateInput),
		errors.Is(err, agent.ErrBlogReviewInput):
		return NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, loader.ErrEmptySource),
		errors.Is(err, loader.ErrUnsupported),
		errors.Is(err, loader.ErrInvalidSource),
		errors.Is(err, loader.ErrNoConverter):
		return NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, loader.ErrFileTooLarge):
		return NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &backendErr):
		// an error reported inside an OK body is the input's fault
		if backendErr.Status == http.StatusOK {
			return NewError(fiber.StatusUnprocessableEntity, backendErr.Message)
		}
		if backendErr.Status >= 400 && backendErr.Status < 500 {
			return NewError(backendErr.Status, backendErr.Message)
		}
		return NewError(fiber.StatusBadGateway, backendErr.Message)
	case errors.As(err, &serverErr):
		return NewError(fiber.StatusBadGateway, serverErr.Error())
	}
	return NewError(fiber.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid id given",
	}
}
