package routequery

import "expert-router/internal/models"

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["query"],
	"properties": {
		"query":           {"type": "string", "maxLength": 10000},
		"businessContext": {"type": "object"},
		"sessionType":     {"type": "string", "maxLength": 64}
	}
}`

type Input struct {
	Query           string                 `json:"query"`
	BusinessContext map[string]interface{} `json:"businessContext,omitempty"`
	SessionType     string                 `json:"sessionType,omitempty"`
}

type Output struct {
	Decision *models.RoutingDecision `json:"routingDecision"`
}

// Variables flattens the fields gateways branch on next to the full decision.
func (o *Output) Variables() map[string]interface{} {
	d := o.Decision
	secondary := make([]string, len(d.Secondary))
	for i, s := range d.Secondary {
		secondary[i] = s.Agent
	}
	return map[string]interface{}{
		"routingDecision":   d,
		"primaryAgent":      d.Primary.Agent,
		"primaryConfidence": d.Primary.Confidence,
		"secondaryAgents":   secondary,
		"collaborativeMode": d.CollaborativeMode,
		"queryIntent":       string(d.Analysis.Intent),
		"queryUrgency":      string(d.Analysis.Urgency),
	}
}
