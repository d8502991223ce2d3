package routing

import (
	"fmt"
	"math"
	"strings"

	"expert-router/internal/common/config"
	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/metrics"
	"expert-router/internal/models"
)

// SelectionRules control primary/secondary selection.
type SelectionRules struct {
	SecondaryThreshold float64
	MaxSecondary       int
	PrimaryDivisor     float64
	PrimaryCap         float64
	SecondaryDivisor   float64
	SecondaryCap       float64
	DefaultSessionType string
}

func DefaultSelectionRules() SelectionRules {
	return SelectionRules{
		SecondaryThreshold: 30,
		MaxSecondary:       3,
		PrimaryDivisor:     100,
		PrimaryCap:         0.95,
		SecondaryDivisor:   120,
		SecondaryCap:       0.85,
		DefaultSessionType: "advisory",
	}
}

func SelectionRulesFromConfig(r config.RoutingConfig) SelectionRules {
	return SelectionRules{
		SecondaryThreshold: r.Selection.SecondaryThreshold,
		MaxSecondary:       r.Selection.MaxSecondary,
		PrimaryDivisor:     r.Selection.PrimaryDivisor,
		PrimaryCap:         r.Selection.PrimaryCap,
		SecondaryDivisor:   r.Selection.SecondaryDivisor,
		SecondaryCap:       r.Selection.SecondaryCap,
		DefaultSessionType: r.DefaultSessionType,
	}
}

var complexityTimeFactor = map[models.Complexity]float64{
	models.ComplexitySimple:    1,
	models.ComplexityMedium:    1.5,
	models.ComplexityComplex:   2,
	models.ComplexityStrategic: 3,
}

// Engine routes queries against a Registry.
type Engine struct {
	registry *Registry
	scorer   *Scorer
	rules    SelectionRules
	audit    *AuditLog
	logger   logger.Logger
}

// NewEngine fails with a configuration error when the registry is missing or empty.
func NewEngine(registry *Registry, scorer *Scorer, audit *AuditLog, rules SelectionRules, log logger.Logger) (*Engine, error) {
	if registry.Len() == 0 {
		return nil, errors.NewConfigurationError("routing engine requires a non-empty capability registry")
	}
	if scorer == nil {
		scorer = NewScorer(DefaultWeights())
	}
	if audit == nil {
		audit = NewAuditLog(DefaultAuditLogSize, nil)
	}
	return &Engine{
		registry: registry,
		scorer:   scorer,
		rules:    rules,
		audit:    audit,
		logger:   logger.ForComponent(log, "routing-engine"),
	}, nil
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) AuditLog() *AuditLog { return e.audit }

// Analyze runs the query analyzer and appends the result to the audit log.
func (e *Engine) Analyze(query string, businessContext map[string]interface{}) models.QueryAnalysis {
	analysis := Analyze(query, businessContext)
	e.audit.Append(query, analysis)
	metrics.QueryIntents.WithLabelValues(string(analysis.Intent), string(analysis.Complexity)).Inc()

	e.logger.Debug("query analyzed", map[string]interface{}{
		"intent":     analysis.Intent,
		"complexity": analysis.Complexity,
		"urgency":    analysis.Urgency,
		"confidence": analysis.Confidence,
	})
	return analysis
}

// Route analyzes the query and selects agents from a consistent registry snapshot.
func (e *Engine) Route(query string, businessContext map[string]interface{}, sessionType string) (*models.RoutingDecision, error) {
	analysis := e.Analyze(query, businessContext)

	decision, err := e.Decide(query, analysis, e.registry.Snapshot(), sessionType)
	if err != nil {
		return nil, err
	}

	mode := "single"
	if decision.CollaborativeMode {
		mode = "collaborative"
	}
	metrics.RoutingDecisions.WithLabelValues(decision.Primary.Agent, mode).Inc()
	metrics.RoutingPrimaryConfidence.Observe(decision.Primary.Confidence)

	e.logger.Info("query routed", map[string]interface{}{
		"primary":       decision.Primary.Agent,
		"confidence":    decision.Primary.Confidence,
		"secondary":     len(decision.Secondary),
		"collaborative": decision.CollaborativeMode,
		"intent":        analysis.Intent,
	})
	return decision, nil
}

// Decide builds a RoutingDecision from an analysis and a registry snapshot.
// It has no side effects; equal inputs yield equal decisions.
func (e *Engine) Decide(query string, analysis models.QueryAnalysis, agents []models.AgentCapability, sessionType string) (*models.RoutingDecision, error) {
	if len(agents) == 0 {
		return nil, errors.NewConfigurationError("no agents available for routing")
	}
	if sessionType == "" {
		sessionType = e.rules.DefaultSessionType
	}

	ranked := e.scorer.Rank(query, analysis, agents)
	top := ranked[0]

	primary := models.AgentSelection{
		Agent:                top.Agent.Name,
		Reason:               primaryReason(analysis, top),
		Confidence:           capped(top.Score, e.rules.PrimaryDivisor, e.rules.PrimaryCap),
		ExpectedFrameworks:   nonNil(top.FrameworkMatches),
		EstimatedTimeSeconds: estimatedTime(top.Agent, analysis.Complexity),
		Prerequisites:        []string{},
	}

	secondary := []models.AgentSelection{}
	for _, s := range ranked[1:] {
		if len(secondary) >= e.rules.MaxSecondary {
			break
		}
		if s.Score <= e.rules.SecondaryThreshold {
			break
		}
		secondary = append(secondary, models.AgentSelection{
			Agent:                s.Agent.Name,
			Reason:               fmt.Sprintf("Supports %s with complementary expertise (score %d)", primary.Agent, roundScore(s.Score)),
			Confidence:           capped(s.Score, e.rules.SecondaryDivisor, e.rules.SecondaryCap),
			ExpectedFrameworks:   nonNil(s.FrameworkMatches),
			EstimatedTimeSeconds: estimatedTime(s.Agent, analysis.Complexity),
			Prerequisites:        []string{primary.Agent},
		})
	}

	collaborative := IsCollaborative(analysis, len(secondary))

	decision := &models.RoutingDecision{
		Primary:           primary,
		Secondary:         secondary,
		CollaborativeMode: collaborative,
		SessionType:       sessionType,
		Analysis:          analysis,
	}
	decision.ExecutionPlan = executionPlan(decision)
	decision.Reasoning = reasoning(decision, top)
	return decision, nil
}

// IsCollaborative reports whether several agents should work the query together.
func IsCollaborative(analysis models.QueryAnalysis, secondaryCount int) bool {
	switch {
	case analysis.Complexity == models.ComplexityComplex, analysis.Complexity == models.ComplexityStrategic:
		return true
	case len(analysis.Frameworks) > 2:
		return true
	case secondaryCount > 1:
		return true
	}
	return false
}

func executionPlan(d *models.RoutingDecision) []string {
	primary := d.Primary.Agent
	secondaryNames := make([]string, len(d.Secondary))
	for i, s := range d.Secondary {
		secondaryNames[i] = s.Agent
	}

	if d.CollaborativeMode {
		contribute := fmt.Sprintf("%s covers supporting perspectives directly", primary)
		if len(secondaryNames) > 0 {
			contribute = fmt.Sprintf("%s contribute supporting perspectives", strings.Join(secondaryNames, ", "))
		}
		return []string{
			fmt.Sprintf("Initialize collaborative %s session", d.SessionType),
			fmt.Sprintf("%s leads the analysis as primary specialist", primary),
			contribute,
			fmt.Sprintf("Cross-validate recommendations across %s", strings.Join(d.Agents(), ", ")),
			"Synthesize a unified action plan",
		}
	}

	plan := []string{fmt.Sprintf("%s analyzes the query", primary)}
	if len(secondaryNames) > 0 {
		plan = append(plan, fmt.Sprintf("%s validates the recommendations", secondaryNames[0]))
	}
	return append(plan, "Generate actionable recommendations")
}

func reasoning(d *models.RoutingDecision, top AgentScore) string {
	a := d.Analysis
	parts := []string{
		fmt.Sprintf("Query analyzed as %s intent with %s complexity (%d%% confidence).",
			a.Intent, a.Complexity, int(math.Round(a.Confidence*100))),
	}

	selection := fmt.Sprintf("%s selected as primary specialist (score %d)", top.Agent.Name, roundScore(top.Score))
	if len(top.KeywordMatches) > 0 {
		selection += fmt.Sprintf(" matching %s", strings.Join(top.KeywordMatches, ", "))
	}
	parts = append(parts, selection+".")

	if d.CollaborativeMode {
		parts = append(parts, fmt.Sprintf("Collaborative mode enabled with %d supporting specialist(s).", len(d.Secondary)))
	}
	if a.Urgency == models.UrgencyHigh || a.Urgency == models.UrgencyCritical {
		parts = append(parts, fmt.Sprintf("Urgency is %s; fast-response guidance prioritized.", a.Urgency))
	}
	return strings.Join(parts, " ")
}

func primaryReason(a models.QueryAnalysis, top AgentScore) string {
	return fmt.Sprintf("Best match for %s intent (score %d)", a.Intent, roundScore(top.Score))
}

func capped(score, divisor, ceiling float64) float64 {
	if divisor <= 0 {
		return 0
	}
	return round2(math.Max(0, math.Min(score/divisor, ceiling)))
}

func estimatedTime(agent models.AgentCapability, c models.Complexity) float64 {
	factor, ok := complexityTimeFactor[c]
	if !ok {
		factor = 1
	}
	return math.Round(agent.AvgResponseTimeSeconds*factor*10) / 10
}

func roundScore(score float64) int {
	return int(math.Round(score))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
