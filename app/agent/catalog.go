package agent

import (
	"context"

	"agenthub/types"

	"go.uber.org/zap"
)

// BuiltinAgents is served when the backend catalog is unavailable.
var BuiltinAgents = []types.Agent{
	{
		ID:          EmailAgentID,
		Name:        "AKS Support Assistant",
		Description: "Expert help for Azure Kubernetes Service issues",
		Icon:        "🚀",
		Status:      types.AgentActive,
	},
	{
		ID:          PRDAgentID,
		Name:        "PRD Writer",
		Description: "Generate professional Product Requirement Documents",
		Icon:        "📝",
		Status:      types.AgentActive,
	},
	{
		ID:          "prd-builder",
		Name:        "PRD Builder (Section by Section)",
		Description: "Build PRDs section by section with review and editing",
		Icon:        "🏗️",
		Status:      types.AgentActive,
	},
}

type CatalogSource interface {
	Assistants(ctx context.Context) ([]types.Agent, error)
}

// Catalog lists the agents of the backend, or the built-in list when the
// backend has none to offer.
func Catalog(ctx context.Context, src CatalogSource, log *zap.Logger) []types.Agent {
	agents, err := src.Assistants(ctx)
	if err == nil && len(agents) > 0 {
		return agents
	}
	if err != nil && log != nil {
		log.Warn("agent catalog unavailable, using built-in list", zap.Error(err))
	}
	out := make([]types.Agent, len(BuiltinAgents))
	copy(out, BuiltinAgents)
	return out
}
