package routing

import (
	"fmt"
	"strings"
	"sync"

	"expert-router/internal/common/errors"
	"expert-router/internal/models"
)

type agentEntry struct {
	capability models.AgentCapability
	samples    []float64
}

// Registry is the process-wide table of agent capabilities. The agent set is
// fixed at construction; only rolling performance fields change afterwards.
type Registry struct {
	mu     sync.RWMutex
	agents []*agentEntry
	index  map[string]int
}

// NewRegistry validates profiles and builds a registry in declaration order.
// An empty or malformed profile set is a configuration error.
func NewRegistry(profiles []models.AgentCapability) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.NewConfigurationError("capability registry has no agents")
	}

	r := &Registry{
		agents: make([]*agentEntry, 0, len(profiles)),
		index:  make(map[string]int, len(profiles)),
	}
	for i, p := range profiles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errors.NewConfigurationError(fmt.Sprintf("agent at position %d has no name", i))
		}
		if _, dup := r.index[name]; dup {
			return nil, errors.NewConfigurationError(fmt.Sprintf("duplicate agent %q", name))
		}
		if len(p.Expertise) == 0 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("agent %q has no expertise keywords", name))
		}
		if p.SuccessRate < 0 || p.SuccessRate > 1 || p.AverageConfidence < 0 || p.AverageConfidence > 1 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("agent %q has performance stats outside [0,1]", name))
		}

		c := cloneCapability(p)
		c.Name = name
		for j, kw := range c.Expertise {
			c.Expertise[j] = strings.ToLower(strings.TrimSpace(kw))
		}

		r.index[name] = len(r.agents)
		r.agents = append(r.agents, &agentEntry{capability: c})
	}
	return r, nil
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Names returns agent names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.capability.Name
	}
	return names
}

// Get returns a copy of one agent's capability.
func (r *Registry) Get(name string) (models.AgentCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return models.AgentCapability{}, false
	}
	return cloneCapability(r.agents[i].capability), true
}

// Snapshot returns a consistent copy of every capability in declaration order.
func (r *Registry) Snapshot() []models.AgentCapability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentCapability, len(r.agents))
	for i, a := range r.agents {
		out[i] = cloneCapability(a.capability)
	}
	return out
}

// Samples returns a copy of an agent's rolling window.
func (r *Registry) Samples(name string) ([]float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), r.agents[i].samples...), true
}

// addSample appends one sample to the agent's window, evicts beyond limit and
// recomputes the rolling stats under the write lock.
func (r *Registry) addSample(name string, sample float64, limit int) (PerformanceSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok {
		return PerformanceSnapshot{}, false
	}
	a := r.agents[i]
	a.samples = append(a.samples, sample)
	if over := len(a.samples) - limit; over > 0 {
		a.samples = append([]float64(nil), a.samples[over:]...)
	}
	a.capability.AverageConfidence, a.capability.SuccessRate = windowStats(a.samples)
	return PerformanceSnapshot{
		AverageConfidence: a.capability.AverageConfidence,
		SuccessRate:       a.capability.SuccessRate,
		Samples:           append([]float64(nil), a.samples...),
	}, true
}

// restore replaces an agent's window with persisted samples.
func (r *Registry) restore(name string, samples []float64, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok || len(samples) == 0 {
		return false
	}
	if over := len(samples) - limit; over > 0 {
		samples = samples[over:]
	}
	a := r.agents[i]
	a.samples = append([]float64(nil), samples...)
	a.capability.AverageConfidence, a.capability.SuccessRate = windowStats(a.samples)
	return true
}

// windowStats returns the plain mean of the window and the fraction of
// non-zero samples.
func windowStats(samples []float64) (mean, successRate float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	var hits int
	for _, s := range samples {
		sum += s
		if s != 0 {
			hits++
		}
	}
	n := float64(len(samples))
	return sum / n, float64(hits) / n
}

func cloneCapability(c models.AgentCapability) models.AgentCapability {
	c.Expertise = append([]string(nil), c.Expertise...)
	return c
}
