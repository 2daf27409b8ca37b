package api

import (
	"agenthub/app/agent"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AgentsHandler struct {
	catalog agent.CatalogSource
	log     *zap.Logger
}

func NewAgentsHandler(catalog agent.CatalogSource, log *zap.Logger) *AgentsHandler {
	return &AgentsHandler{
		catalog: catalog,
		log:     log,
	}
}

func (h *AgentsHandler) HandleList(c *fiber.Ctx) error {
	return c.JSON(agent.Catalog(c.UserContext(), h.catalog, h.log))
}
