package clearmemory

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"userId":    {"type": "string"},
		"sessionId": {"type": "string"}
	}
}`

type Input struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	Key     string `json:"identityKey"`
	Cleared bool   `json:"memoryCleared"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"identityKey":   o.Key,
		"memoryCleared": o.Cleared,
	}
}
