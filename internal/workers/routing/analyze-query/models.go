package analyzequery

import "expert-router/internal/models"

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["query"],
	"properties": {
		"query":           {"type": "string", "maxLength": 10000},
		"businessContext": {"type": "object"}
	}
}`

type Input struct {
	Query           string                 `json:"query"`
	BusinessContext map[string]interface{} `json:"businessContext,omitempty"`
}

type Output struct {
	Analysis models.QueryAnalysis `json:"queryAnalysis"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"queryAnalysis":      o.Analysis,
		"queryIntent":        string(o.Analysis.Intent),
		"queryComplexity":    string(o.Analysis.Complexity),
		"queryUrgency":       string(o.Analysis.Urgency),
		"analysisConfidence": o.Analysis.Confidence,
	}
}
