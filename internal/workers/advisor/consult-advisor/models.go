package consultadvisor

import "expert-router/internal/advisor"

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["query"],
	"properties": {
		"query":           {"type": "string", "minLength": 1, "maxLength": 10000},
		"userId":          {"type": "string"},
		"sessionId":       {"type": "string"},
		"businessContext": {"type": "object"},
		"sessionType":     {"type": "string"},
		"useMemory":       {"type": "boolean"}
	}
}`

// Input mirrors advisor.Request. UseMemory defaults to true when absent.
type Input struct {
	Query           string                 `json:"query"`
	UserID          string                 `json:"userId,omitempty"`
	SessionID       string                 `json:"sessionId,omitempty"`
	BusinessContext map[string]interface{} `json:"businessContext,omitempty"`
	SessionType     string                 `json:"sessionType,omitempty"`
	UseMemory       *bool                  `json:"useMemory,omitempty"`
}

func (in *Input) request() advisor.Request {
	useMemory := true
	if in.UseMemory != nil {
		useMemory = *in.UseMemory
	}
	return advisor.Request{
		Query:           in.Query,
		UserID:          in.UserID,
		SessionID:       in.SessionID,
		BusinessContext: in.BusinessContext,
		SessionType:     in.SessionType,
		UseMemory:       useMemory,
	}
}

type Output struct {
	Consultation *advisor.Response `json:"consultation"`
}

func (o *Output) Variables() map[string]interface{} {
	c := o.Consultation
	return map[string]interface{}{
		"consultation":      c,
		"identityKey":       c.Key,
		"turnId":            c.TurnID,
		"primaryAgent":      c.Primary.Agent,
		"primaryResponse":   c.Primary.Response,
		"primarySucceeded":  c.Primary.Success,
		"collaborativeMode": c.Decision.CollaborativeMode,
		"escalated":         c.Escalated,
	}
}
