package routing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(DefaultProfiles())
	require.NoError(t, err)
	return reg
}

func newTestEngine(t *testing.T, reg *Registry) *Engine {
	t.Helper()
	if reg == nil {
		reg = newTestRegistry(t)
	}
	engine, err := NewEngine(reg, NewScorer(DefaultWeights()), NewAuditLog(100, nil), DefaultSelectionRules(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return engine
}

// ==========================
// Routing Decisions
// ==========================

func TestEngine_Route_SalesDiagnosis(t *testing.T) {
	engine := newTestEngine(t, nil)

	d, err := engine.Route("What's wrong with my sales conversion, it's stuck", nil, "")
	require.NoError(t, err)

	assert.Equal(t, "sales-conversion-expert", d.Primary.Agent)
	assert.InDelta(t, 0.65, d.Primary.Confidence, 0.01)
	assert.Contains(t, d.Primary.Reason, "diagnose")
	assert.Contains(t, d.Primary.Reason, "65")
	assert.Empty(t, d.Primary.Prerequisites)

	require.Len(t, d.Secondary, 1)
	assert.Equal(t, "business-diagnostician", d.Secondary[0].Agent)
	assert.Equal(t, []string{"sales-conversion-expert"}, d.Secondary[0].Prerequisites)
	assert.InDelta(t, 43.5/120, d.Secondary[0].Confidence, 0.01)

	assert.False(t, d.CollaborativeMode)
	assert.Equal(t, "advisory", d.SessionType)
	assert.Equal(t, []string{
		"sales-conversion-expert analyzes the query",
		"business-diagnostician validates the recommendations",
		"Generate actionable recommendations",
	}, d.ExecutionPlan)
	assert.Contains(t, d.Reasoning, "80% confidence")
	assert.NotContains(t, d.Reasoning, "Collaborative")

	assert.Equal(t, 1, engine.AuditLog().Len())
}

func TestEngine_Route_IsDeterministic(t *testing.T) {
	engine := newTestEngine(t, nil)
	queries := []string{
		"What's wrong with my sales conversion, it's stuck",
		"comprehensive plan covering offer, pricing, marketing, sales and operations",
		"urgent: my sales funnel is broken",
		"",
	}

	for _, q := range queries {
		first, err := engine.Route(q, map[string]interface{}{"industry": "fitness"}, "workshop")
		require.NoError(t, err)
		second, err := engine.Route(q, map[string]interface{}{"industry": "fitness"}, "workshop")
		require.NoError(t, err)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("route(%q) not deterministic (-first +second):\n%s", q, diff)
		}
	}
}

func TestEngine_Route_StrategicIsCollaborative(t *testing.T) {
	engine := newTestEngine(t, nil)

	d, err := engine.Route("comprehensive plan covering offer, pricing, marketing, sales and operations", nil, "workshop")
	require.NoError(t, err)

	assert.Equal(t, models.ComplexityStrategic, d.Analysis.Complexity)
	assert.True(t, d.CollaborativeMode)
	require.Len(t, d.ExecutionPlan, 5)
	assert.Equal(t, "Initialize collaborative workshop session", d.ExecutionPlan[0])
	assert.Contains(t, d.ExecutionPlan[1], d.Primary.Agent)
	for _, s := range d.Secondary {
		assert.Contains(t, d.ExecutionPlan[2], s.Agent)
		assert.Contains(t, d.ExecutionPlan[3], s.Agent)
	}
	assert.Contains(t, d.Reasoning, "Collaborative mode enabled")
}

func TestEngine_Route_CriticalUrgency(t *testing.T) {
	engine := newTestEngine(t, nil)

	d, err := engine.Route("urgent: my sales funnel is broken", nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.UrgencyCritical, d.Analysis.Urgency)
	assert.Equal(t, "sales-conversion-expert", d.Primary.Agent)
	// Fast responders pick up the critical-speed bonus and clear the secondary threshold.
	require.Len(t, d.Secondary, 1)
	assert.Equal(t, "lead-generation-specialist", d.Secondary[0].Agent)
	assert.Contains(t, d.Reasoning, "Urgency is critical")
}

func TestEngine_Route_SecondaryLimits(t *testing.T) {
	engine := newTestEngine(t, nil)

	d, err := engine.Route("offer pricing upsell revenue leads ads sales conversion operations hiring bottleneck strategy", nil, "")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(d.Secondary), 3)
	assert.Greater(t, len(d.Secondary), 1)
	assert.True(t, d.CollaborativeMode)
	for _, s := range d.Secondary {
		assert.NotEqual(t, d.Primary.Agent, s.Agent)
		assert.LessOrEqual(t, s.Confidence, 0.85)
		assert.Equal(t, []string{d.Primary.Agent}, s.Prerequisites)
	}
}

func TestEngine_Route_PrimaryBounds(t *testing.T) {
	engine := newTestEngine(t, nil)
	names := engine.Registry().Names()

	queries := []string{
		"",
		"hi",
		"offer offer offer pricing guarantee bonus value equation grand slam offer",
		"URGENT crisis: leads, ads, advertising, marketing, traffic, content, core four",
		strings.Repeat("diagnose problem bottleneck stuck churn retention metrics ", 5),
	}
	for _, q := range queries {
		d, err := engine.Route(q, nil, "")
		require.NoError(t, err)
		assert.Contains(t, names, d.Primary.Agent)
		assert.GreaterOrEqual(t, d.Primary.Confidence, 0.0)
		assert.LessOrEqual(t, d.Primary.Confidence, 0.95)
	}
}

func TestEngine_Route_FrameworkOverlapFeedsExpectations(t *testing.T) {
	engine := newTestEngine(t, nil)

	d, err := engine.Route("Build me a grand slam offer using the value equation", nil, "")
	require.NoError(t, err)

	assert.Equal(t, "offer-architect", d.Primary.Agent)
	assert.ElementsMatch(t, []string{"grand slam offer", "value equation"}, d.Primary.ExpectedFrameworks)
	assert.Equal(t, 0.95, d.Primary.Confidence)
}

func TestEngine_Decide_TiesKeepDeclarationOrder(t *testing.T) {
	profiles := []models.AgentCapability{
		{Name: "first", Expertise: []string{"alpha"}, Priority: 5},
		{Name: "second", Expertise: []string{"alpha"}, Priority: 5},
		{Name: "third", Expertise: []string{"alpha"}, Priority: 5},
	}
	reg, err := NewRegistry(profiles)
	require.NoError(t, err)
	engine := newTestEngine(t, reg)

	d, err := engine.Route("alpha", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "first", d.Primary.Agent)
	require.Len(t, d.Secondary, 0) // 25 points is under the threshold
}

func TestEngine_Decide_EmptySnapshotFails(t *testing.T) {
	engine := newTestEngine(t, nil)
	_, err := engine.Decide("anything", Analyze("anything", nil), nil, "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}

func TestNewEngine_RequiresRegistry(t *testing.T) {
	_, err := NewEngine(nil, nil, nil, DefaultSelectionRules(), logger.NewNoOpLogger())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}

func TestIsCollaborative(t *testing.T) {
	tests := []struct {
		name      string
		analysis  models.QueryAnalysis
		secondary int
		want      bool
	}{
		{"simple alone", models.QueryAnalysis{Complexity: models.ComplexitySimple}, 0, false},
		{"one secondary", models.QueryAnalysis{Complexity: models.ComplexityMedium}, 1, false},
		{"two secondaries", models.QueryAnalysis{Complexity: models.ComplexityMedium}, 2, true},
		{"complex", models.QueryAnalysis{Complexity: models.ComplexityComplex}, 0, true},
		{"strategic", models.QueryAnalysis{Complexity: models.ComplexityStrategic}, 0, true},
		{"two frameworks", models.QueryAnalysis{Complexity: models.ComplexitySimple, Frameworks: []string{"a", "b"}}, 0, false},
		{"three frameworks", models.QueryAnalysis{Complexity: models.ComplexitySimple, Frameworks: []string{"a", "b", "c"}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCollaborative(tt.analysis, tt.secondary))
		})
	}
}

// ==========================
// Agent Scorer
// ==========================

func TestScorer_Score_Components(t *testing.T) {
	s := NewScorer(DefaultWeights())
	agent := models.AgentCapability{
		Name:                   "sales",
		Expertise:              []string{"sales", "closer"},
		Priority:               4,
		SuccessRate:            0.5,
		AverageConfidence:      0.5,
		AvgResponseTimeSeconds: 1,
	}

	plain := s.Score("sales help", models.QueryAnalysis{Urgency: models.UrgencyMedium}, agent)
	assert.InDelta(t, 20+5+5+4, plain.Score, 1e-9)
	assert.Equal(t, []string{"sales"}, plain.KeywordMatches)

	withFramework := s.Score("sales help", models.QueryAnalysis{Frameworks: []string{"closer"}}, agent)
	assert.InDelta(t, plain.Score+15, withFramework.Score, 1e-9)

	critical := s.Score("sales help", models.QueryAnalysis{Urgency: models.UrgencyCritical}, agent)
	assert.InDelta(t, plain.Score+10, critical.Score, 1e-9)

	agent.AvgResponseTimeSeconds = 2
	slow := s.Score("sales help", models.QueryAnalysis{Urgency: models.UrgencyCritical}, agent)
	assert.InDelta(t, plain.Score, slow.Score, 1e-9)
}

func TestScorer_KeywordMatchIsMonotonic(t *testing.T) {
	s := NewScorer(DefaultWeights())
	agent := DefaultProfiles()[0]
	analysis := models.QueryAnalysis{Urgency: models.UrgencyMedium}

	base := "help me with my business"
	prev := s.Score(base, analysis, agent).Score
	for _, kw := range agent.Expertise {
		base = fmt.Sprintf("%s %s", base, kw)
		next := s.Score(base, analysis, agent).Score
		assert.GreaterOrEqual(t, next, prev, "adding %q lowered the score", kw)
		prev = next
	}
}

func TestScorer_Rank_StableOnTies(t *testing.T) {
	s := NewScorer(DefaultWeights())
	agents := []models.AgentCapability{
		{Name: "b", Expertise: []string{"x"}},
		{Name: "a", Expertise: []string{"x"}},
	}
	ranked := s.Rank("x", models.QueryAnalysis{}, agents)
	assert.Equal(t, "b", ranked[0].Agent.Name)
	assert.Equal(t, "a", ranked[1].Agent.Name)
}
