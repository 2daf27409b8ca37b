package api

import (
	"agenthub/loader"
	"agenthub/types"

	"github.com/gofiber/fiber/v2"
)

// SourceHandler turns uploads, text and URLs into PRD data sources. Sources
// are returned to the client, which sends them along with a session request.
type SourceHandler struct {
	loader *loader.Loader
}

func NewSourceHandler(l *loader.Loader) *SourceHandler {
	return &SourceHandler{loader: l}
}

func (h *SourceHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	ds, err := h.loader.File(c.UserContext(), fileHeader.Filename, file)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ds)
}

func (h *SourceHandler) HandleText(c *fiber.Ctx) error {
	var params types.TextSourceParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ds, err := h.loader.Text(params.Name, params.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ds)
}

func (h *SourceHandler) HandleURL(c *fiber.Ctx) error {
	var params types.URLSourceParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ds, err := h.loader.URL(params.URL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ds)
}
