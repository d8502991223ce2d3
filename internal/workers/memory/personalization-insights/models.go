package personalizationinsights

import "expert-router/internal/models"

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["query"],
	"properties": {
		"userId":    {"type": "string"},
		"sessionId": {"type": "string"},
		"query":     {"type": "string"}
	}
}`

type Input struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Query     string `json:"query"`
}

type Output struct {
	Key             string                            `json:"identityKey"`
	Recommendations *models.ContextualRecommendations `json:"recommendations"`
	Context         *models.ConversationContext       `json:"conversationContext"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"identityKey":         o.Key,
		"recommendations":     o.Recommendations,
		"conversationContext": o.Context,
		"suggestedAgents":     o.Recommendations.SuggestedAgents,
		"memoryWarnings":      o.Recommendations.Warnings,
	}
}
