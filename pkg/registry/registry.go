// Package registry maps agent names to their executor factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/zigral/zigral/pkg/protocol"
)

type Registry struct {
	logger         *slog.Logger
	agentFactories map[string]protocol.AgentFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:         logger,
		agentFactories: make(map[string]protocol.AgentFactory),
	}
}

func (r *Registry) RegisterAgent(factory protocol.AgentFactory) {
	r.agentFactories[factory.ID()] = factory
}

// CreateAgent builds an executor for the named agent type.
func (r *Registry) CreateAgent(agent string, config map[string]any) (protocol.AgentExecutor, error) {
	factory, ok := r.agentFactories[agent]
	if !ok {
		return nil, fmt.Errorf("agent '%s' not registered", agent)
	}

	return factory.Create(config)
}

func (r *Registry) AvailableAgents() []string {
	agents := make([]string, 0, len(r.agentFactories))
	for agent := range r.agentFactories {
		agents = append(agents, agent)
	}

	return agents
}

// HealthCheck reports whether the registry has any agents to dispatch to.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.agentFactories) == 0 {
		return "no agents registered", false
	}

	return "ok", true
}
