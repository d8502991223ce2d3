// internal/models/routing.go
package models

// Intent is the coarse goal detected in a query.
type Intent string

const (
	IntentAnalyze  Intent = "analyze"
	IntentOptimize Intent = "optimize"
	IntentDiagnose Intent = "diagnose"
	IntentPlan     Intent = "plan"
	IntentCompare  Intent = "compare"
	IntentLearn    Intent = "learn"
	IntentCreate   Intent = "create"
	IntentFix      Intent = "fix"
	IntentGeneral  Intent = "general"
)

type Complexity string

const (
	ComplexitySimple    Complexity = "simple"
	ComplexityMedium    Complexity = "medium"
	ComplexityComplex   Complexity = "complex"
	ComplexityStrategic Complexity = "strategic"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// AgentCapability is one registered specialist and its rolling performance.
type AgentCapability struct {
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	Expertise              []string `json:"expertise"`
	Priority               int      `json:"priority"`
	AverageConfidence      float64  `json:"averageConfidence"`
	SuccessRate            float64  `json:"successRate"`
	AvgResponseTimeSeconds float64  `json:"avgResponseTimeSeconds"`
}

// QueryAnalysis is the structured reading of a single free-text query.
type QueryAnalysis struct {
	Intent          Intent     `json:"intent"`
	Complexity      Complexity `json:"complexity"`
	Urgency         Urgency    `json:"urgency"`
	BusinessContext []string   `json:"businessContext"`
	Frameworks      []string   `json:"frameworks"`
	Confidence      float64    `json:"confidence"`
}

type AgentSelection struct {
	Agent                string   `json:"agent"`
	Reason               string   `json:"reason"`
	Confidence           float64  `json:"confidence"`
	ExpectedFrameworks   []string `json:"expectedFrameworks"`
	EstimatedTimeSeconds float64  `json:"estimatedTimeSeconds"`
	Prerequisites        []string `json:"prerequisites"`
}

// RoutingDecision is the full outcome of routing one query.
type RoutingDecision struct {
	Primary           AgentSelection   `json:"primary"`
	Secondary         []AgentSelection `json:"secondary"`
	CollaborativeMode bool             `json:"collaborativeMode"`
	ExecutionPlan     []string         `json:"executionPlan"`
	Reasoning         string           `json:"reasoning"`
	SessionType       string           `json:"sessionType"`
	Analysis          QueryAnalysis    `json:"analysis"`
}

// Agents returns the primary followed by every secondary agent name.
func (d *RoutingDecision) Agents() []string {
	names := make([]string, 0, 1+len(d.Secondary))
	names = append(names, d.Primary.Agent)
	for _, s := range d.Secondary {
		names = append(names, s.Agent)
	}
	return names
}
