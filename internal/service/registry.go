package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain"
	"github.com/cloutagent/cloutagent/internal/domain/agent"
	"github.com/cloutagent/cloutagent/internal/secrets"
)

// APIKeySecret is the vault key holding the provider credential.
const APIKeySecret = "ANTHROPIC_API_KEY"

// AgentRegistry is the in-memory table of runtime agents, keyed by id.
// Agents live for the process lifetime; there is no delete.
type AgentRegistry struct {
	vault *secrets.Vault

	mu     sync.RWMutex
	agents map[string]*agent.Agent
}

// NewAgentRegistry creates an empty registry backed by the given vault.
func NewAgentRegistry(vault *secrets.Vault) *AgentRegistry {
	return &AgentRegistry{
		vault:  vault,
		agents: make(map[string]*agent.Agent),
	}
}

// Create snapshots the config into a new agent and stores it, overwriting
// any prior agent with the same id. It fails when no provider credential is
// available, so a misconfigured process is caught at creation time rather
// than mid-execution.
func (r *AgentRegistry) Create(cfg agent.Config) (*agent.Agent, error) {
	if r.vault == nil || r.vault.Get(APIKeySecret) == "" {
		return nil, fmt.Errorf("%w: %s is not set", domain.ErrConfiguration, APIKeySecret)
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("%w: agent id is required", domain.ErrValidation)
	}

	ag := &agent.Agent{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.agents[cfg.ID] = ag
	r.mu.Unlock()

	slog.Info("agent created", "agent_id", ag.ID, "model", cfg.Model)
	return ag, nil
}

// Get returns the agent for id, or domain.ErrNotFound.
func (r *AgentRegistry) Get(id string) (*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ag, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %s", domain.ErrNotFound, id)
	}
	return ag, nil
}

// List returns all agents ordered by id.
func (r *AgentRegistry) List() []*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*agent.Agent, 0, len(r.agents))
	for _, ag := range r.agents {
		out = append(out, ag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
