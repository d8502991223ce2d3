package recordoutcome

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["agent", "success"],
	"properties": {
		"agent":      {"type": "string", "minLength": 1},
		"confidence": {"type": "number"},
		"success":    {"type": "boolean"}
	}
}`

// Input is one observed agent outcome. Confidence is clamped to [0,1] and
// ignored when success is false.
type Input struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
	Success    bool    `json:"success"`
}

type Output struct {
	Agent             string  `json:"agent"`
	AverageConfidence float64 `json:"averageConfidence"`
	SuccessRate       float64 `json:"successRate"`
	Samples           int     `json:"samples"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"agentPerformance": o,
	}
}
