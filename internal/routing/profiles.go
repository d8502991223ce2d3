package routing

import (
	"expert-router/internal/common/errors"
	"expert-router/internal/models"
	"expert-router/pkg/registry"
)

// LoadProfiles returns the built-in profiles when path is empty, otherwise the
// profiles from the registry file. Any file problem is a configuration error.
func LoadProfiles(path string) ([]models.AgentCapability, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, errors.NewConfigurationError(err.Error()).WithMetadata("profilesPath", path)
	}
	return ProfilesFromRegistry(reg), nil
}

func ProfilesFromRegistry(reg *registry.ProfileRegistry) []models.AgentCapability {
	out := make([]models.AgentCapability, 0, len(reg.Agents))
	for _, a := range reg.Agents {
		out = append(out, models.AgentCapability{
			Name:                   a.Name,
			Description:            a.Description,
			Expertise:              append([]string(nil), a.Expertise...),
			Priority:               a.Priority,
			AverageConfidence:      a.AverageConfidence,
			SuccessRate:            a.SuccessRate,
			AvgResponseTimeSeconds: a.AvgResponseTimeSeconds,
		})
	}
	return out
}
