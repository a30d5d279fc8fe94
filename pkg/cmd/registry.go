package cmd

import (
	"log/slog"

	"github.com/zigral/zigral/pkg/agents/linkedin"
	"github.com/zigral/zigral/pkg/agents/sheets"
	"github.com/zigral/zigral/pkg/registry"
)

// NewRegistry builds the agent registry with every built-in agent installed.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterAgent(linkedin.NewAgentFactory())
	reg.RegisterAgent(sheets.NewAgentFactory())

	return reg
}
