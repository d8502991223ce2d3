// pkg/registry/schema.go
package registry

// ProfileRegistry is the on-disk list of agent profiles.
type ProfileRegistry struct {
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	Agents      []AgentProfile `json:"agents"`
}

type AgentProfile struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Expertise   []string `json:"expertise"`
	Priority    int      `json:"priority"`
	// Seed values for the rolling stats, replaced once outcomes arrive.
	AverageConfidence      float64 `json:"averageConfidence"`
	SuccessRate            float64 `json:"successRate"`
	AvgResponseTimeSeconds float64 `json:"avgResponseTimeSeconds"`
}
