package recordturn

import (
	"time"

	"expert-router/internal/models"
)

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["query", "selectedAgent", "success"],
	"properties": {
		"userId":              {"type": "string"},
		"sessionId":           {"type": "string"},
		"query":               {"type": "string"},
		"response":            {"type": "string"},
		"selectedAgent":       {"type": "string", "minLength": 1},
		"success":             {"type": "boolean"},
		"executionTimeMs":     {"type": "integer", "minimum": 0},
		"insights":            {"type": "array", "items": {"type": "string"}},
		"followUpSuggestions": {"type": "array", "items": {"type": "string"}},
		"analysis":            {"type": "object"}
	}
}`

type Input struct {
	UserID              string                `json:"userId,omitempty"`
	SessionID           string                `json:"sessionId,omitempty"`
	Query               string                `json:"query"`
	Response            string                `json:"response,omitempty"`
	SelectedAgent       string                `json:"selectedAgent"`
	Success             bool                  `json:"success"`
	ExecutionTimeMs     int64                 `json:"executionTimeMs,omitempty"`
	Insights            []string              `json:"insights,omitempty"`
	FollowUpSuggestions []string              `json:"followUpSuggestions,omitempty"`
	Analysis            *models.QueryAnalysis `json:"analysis,omitempty"`
}

func (in *Input) turn() models.ConversationTurn {
	t := models.ConversationTurn{
		UserQuery:           in.Query,
		AgentResponse:       in.Response,
		SelectedAgent:       in.SelectedAgent,
		Success:             in.Success,
		ExecutionTime:       time.Duration(in.ExecutionTimeMs) * time.Millisecond,
		Insights:            in.Insights,
		FollowUpSuggestions: in.FollowUpSuggestions,
	}
	if in.Analysis != nil {
		t.Analysis = *in.Analysis
	}
	return t
}

type Output struct {
	Key       string `json:"identityKey"`
	TurnID    string `json:"turnId"`
	Ephemeral bool   `json:"ephemeral"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"identityKey":     o.Key,
		"turnId":          o.TurnID,
		"memoryEphemeral": o.Ephemeral,
	}
}
