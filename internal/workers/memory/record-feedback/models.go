package recordfeedback

import "expert-router/internal/models"

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["turnId", "feedback"],
	"properties": {
		"userId":    {"type": "string"},
		"sessionId": {"type": "string"},
		"turnId":    {"type": "string", "minLength": 1},
		"feedback":  {"type": "string", "enum": ["positive", "negative", "neutral"]}
	}
}`

type Input struct {
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	TurnID    string          `json:"turnId"`
	Feedback  models.Feedback `json:"feedback"`
}

type Output struct {
	Key      string          `json:"identityKey"`
	TurnID   string          `json:"turnId"`
	Feedback models.Feedback `json:"feedback"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"identityKey":      o.Key,
		"turnId":           o.TurnID,
		"feedbackRecorded": string(o.Feedback),
	}
}
