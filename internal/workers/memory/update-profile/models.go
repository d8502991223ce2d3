package updateprofile

import (
	"expert-router/internal/memory"
	"expert-router/internal/models"
)

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"anyOf": [
		{"required": ["userId"]},
		{"required": ["sessionId"]}
	],
	"properties": {
		"userId":                 {"type": "string"},
		"sessionId":              {"type": "string"},
		"industry":               {"type": "string"},
		"businessModel":          {"type": "string"},
		"challenges":             {"type": "array", "items": {"type": "string"}},
		"currentGoals":           {"type": "array", "items": {"type": "string"}},
		"implementedSuggestions": {"type": "array", "items": {"type": "string"}},
		"adaptations": {
			"type": "object",
			"properties": {
				"responseStyle":   {"type": "string"},
				"detailLevel":     {"type": "string"},
				"prefersVisuals":  {"type": "boolean"},
				"prefersExamples": {"type": "boolean"}
			}
		}
	}
}`

type Input struct {
	UserID                 string              `json:"userId,omitempty"`
	SessionID              string              `json:"sessionId,omitempty"`
	Industry               string              `json:"industry,omitempty"`
	BusinessModel          string              `json:"businessModel,omitempty"`
	Challenges             []string            `json:"challenges,omitempty"`
	CurrentGoals           []string            `json:"currentGoals,omitempty"`
	ImplementedSuggestions []string            `json:"implementedSuggestions,omitempty"`
	Adaptations            *models.Adaptations `json:"adaptations,omitempty"`
}

func (in *Input) update() memory.ProfileUpdate {
	return memory.ProfileUpdate{
		Industry:               in.Industry,
		BusinessModel:          in.BusinessModel,
		Challenges:             in.Challenges,
		CurrentGoals:           in.CurrentGoals,
		ImplementedSuggestions: in.ImplementedSuggestions,
		Adaptations:            in.Adaptations,
	}
}

type Output struct {
	Key             string                 `json:"identityKey"`
	BusinessContext models.BusinessProfile `json:"businessProfile"`
	Adaptations     models.Adaptations     `json:"adaptations"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"identityKey":     o.Key,
		"businessProfile": o.BusinessContext,
		"adaptations":     o.Adaptations,
	}
}
