// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	ErrEmptyRegistry = errors.New("registry contains no agents")
	ErrDuplicateName = errors.New("duplicate agent name")
	ErrMissingField  = errors.New("required field missing")
	ErrOutOfRange    = errors.New("value out of range")
)

// LoadRegistry reads and validates a profile registry file.
func LoadRegistry(path string) (*ProfileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ProfileRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON and stamps LastUpdated.
func SaveRegistry(path string, reg *ProfileRegistry) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every profile. The first problem found is returned.
func (r *ProfileRegistry) Validate() error {
	if len(r.Agents) == 0 {
		return ErrEmptyRegistry
	}
	seen := make(map[string]bool, len(r.Agents))
	for i, a := range r.Agents {
		name := strings.TrimSpace(a.Name)
		switch {
		case name == "":
			return fmt.Errorf("agent %d: name: %w", i, ErrMissingField)
		case seen[name]:
			return fmt.Errorf("agent %q: %w", name, ErrDuplicateName)
		case len(a.Expertise) == 0:
			return fmt.Errorf("agent %q: expertise: %w", name, ErrMissingField)
		case a.SuccessRate < 0 || a.SuccessRate > 1:
			return fmt.Errorf("agent %q: successRate %.2f: %w", name, a.SuccessRate, ErrOutOfRange)
		case a.AverageConfidence < 0 || a.AverageConfidence > 1:
			return fmt.Errorf("agent %q: averageConfidence %.2f: %w", name, a.AverageConfidence, ErrOutOfRange)
		case a.AvgResponseTimeSeconds < 0:
			return fmt.Errorf("agent %q: avgResponseTimeSeconds: %w", name, ErrOutOfRange)
		}
		seen[name] = true
	}
	return nil
}

// Find returns the profile with the given name.
func (r *ProfileRegistry) Find(name string) (*AgentProfile, bool) {
	for i := range r.Agents {
		if r.Agents[i].Name == name {
			return &r.Agents[i], true
		}
	}
	return nil, false
}
