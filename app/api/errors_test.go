package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"agenthub/app/agent"
	"agenthub/generation"
	"agenthub/loader"
	"agenthub/model"
	"agenthub/section"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"api error", NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{"unknown session", agent.ErrSessionNotFound, fiber.StatusNotFound},
		{"unknown section", fmt.Errorf("save: %w", section.ErrSectionNotFound), fiber.StatusNotFound},
		{"busy", generation.ErrStreamBusy, fiber.StatusConflict},
		{"not awaiting", generation.ErrNotAwaitingApproval, fiber.StatusConflict},
		{"already editing", agent.ErrAlreadyEditing, fiber.StatusConflict},
		{"empty prompt", generation.ErrEmptyPrompt, fiber.StatusBadRequest},
		{"blog input", agent.ErrBlogCreateInput, fiber.StatusBadRequest},
		{"unsupported file", loader.ErrUnsupported, fiber.StatusUnprocessableEntity},
		{"too large", loader.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
		{"backend rejects", &model.APIError{Status: http.StatusBadRequest, Message: "bad"}, fiber.StatusBadRequest},
		{"backend fails", &model.APIError{Status: http.StatusServiceUnavailable, Message: "down"}, fiber.StatusBadGateway},
		{"backend error in body", &model.APIError{Status: http.StatusOK, Message: "Unknown blog type"}, fiber.StatusUnprocessableEntity},
		{"stream error", &generation.ServerError{Message: "quota"}, fiber.StatusBadGateway},
		{"anything else", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, toAPIError(tt.err).Code)
		})
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	assert.Equal(t, "Internal Server Error", toAPIError(errors.New("db password wrong")).Message)
}

func TestErrorHandlerRendersValidation(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zap.NewNop())})
	app.Get("/v", func(c *fiber.Ctx) error {
		return NewValidationError(map[string]string{"Prompt": "failed on 'required' tag"})
	})
	app.Get("/e", func(c *fiber.Ctx) error {
		return agent.ErrSessionNotFound
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	var verr ValidationError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verr))
	assert.Equal(t, "failed on 'required' tag", verr.Errors["Prompt"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/e", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, fmt.Sprintf(`{"code":404,"error":%q}`, agent.ErrSessionNotFound.Error()), string(body))
}
