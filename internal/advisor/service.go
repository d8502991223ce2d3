package advisor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"expert-router/internal/common/logger"
	"expert-router/internal/common/observability"
	"expert-router/internal/memory"
	"expert-router/internal/models"
	"expert-router/internal/routing"
)

const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// Request is one consultation.
type Request struct {
	Query           string                 `json:"query"`
	UserID          string                 `json:"userId,omitempty"`
	SessionID       string                 `json:"sessionId,omitempty"`
	BusinessContext map[string]interface{} `json:"businessContext,omitempty"`
	SessionType     string                 `json:"sessionType,omitempty"`
	UseMemory       bool                   `json:"useMemory"`
}

// AgentOutcome is the result of running one selected agent.
type AgentOutcome struct {
	Agent     string        `json:"agent"`
	Role      string        `json:"role"`
	Response  string        `json:"response"`
	Insights  []string      `json:"insights"`
	FollowUps []string      `json:"followUps"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

type Response struct {
	Key             string                            `json:"key"`
	TurnID          string                            `json:"turnId,omitempty"`
	Decision        *models.RoutingDecision           `json:"decision"`
	Primary         AgentOutcome                      `json:"primary"`
	Secondary       []AgentOutcome                    `json:"secondary"`
	Recommendations *models.ContextualRecommendations `json:"recommendations,omitempty"`
	Escalated       bool                              `json:"escalated"`
}

// Service composes memory, routing, execution and feedback into one call.
type Service struct {
	engine    *routing.Engine
	recorder  *routing.Recorder
	memory    *memory.Store
	executor  Executor
	escalator Escalator
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires a consultation service. escalator and obs may be nil.
func NewService(engine *routing.Engine, recorder *routing.Recorder, mem *memory.Store, executor Executor, escalator Escalator, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		engine:    engine,
		recorder:  recorder,
		memory:    mem,
		executor:  executor,
		escalator: escalator,
		obs:       obs,
		logger:    logger.ForComponent(log, "advisor"),
		now:       time.Now,
	}
}

// Consult routes the query, runs the selected agents and feeds the outcome
// back into performance tracking and memory. Agent failures become failed
// outcomes; only routing errors are returned.
func (s *Service) Consult(ctx context.Context, req Request) (*Response, error) {
	start := s.now()
	ctx, span := s.obs.Tracer().Start(ctx, "advisor.consult")
	defer span.End()

	key := memory.ResolveKey(req.UserID, req.SessionID)
	resp := &Response{Key: key, Secondary: []AgentOutcome{}}

	businessContext := copyContext(req.BusinessContext)
	if req.UseMemory && key != "" {
		resp.Recommendations = s.mergeMemory(ctx, key, req.Query, businessContext)
	}

	decision, err := s.engine.Route(req.Query, businessContext, req.SessionType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "routing failed")
		return nil, err
	}
	resp.Decision = decision
	span.SetAttributes(
		attribute.String("router.primary", decision.Primary.Agent),
		attribute.Bool("router.collaborative", decision.CollaborativeMode),
		attribute.String("router.intent", string(decision.Analysis.Intent)),
	)

	resp.Primary = s.execute(ctx, decision.Primary, req.Query, RolePrimary)
	resp.Secondary = s.executeSecondary(ctx, decision, req.Query)

	s.recordOutcome(ctx, decision.Primary, resp.Primary)
	for i, out := range resp.Secondary {
		s.recordOutcome(ctx, decision.Secondary[i], out)
	}

	receipt, err := s.memory.RecordTurn(ctx, key, s.buildTurn(req.Query, decision, resp, start))
	if err != nil {
		s.logger.Warn("failed to record conversation turn", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	} else {
		resp.Key = receipt.Key
		resp.TurnID = receipt.Turn.ID
	}

	if decision.Analysis.Urgency == models.UrgencyCritical && s.escalator != nil {
		resp.Escalated = s.escalate(ctx, resp.Key, req.Query, decision)
	}

	elapsed := s.now().Sub(start)
	s.obs.RecordConsultation(ctx, decision.Primary.Agent, decision.CollaborativeMode, elapsed)
	s.logger.Info("consultation completed", map[string]interface{}{
		"key":           resp.Key,
		"primary":       decision.Primary.Agent,
		"success":       resp.Primary.Success,
		"secondary":     len(resp.Secondary),
		"collaborative": decision.CollaborativeMode,
		"duration":      elapsed.String(),
	})
	return resp, nil
}

// mergeMemory adds conversation-context hints to bc without overwriting
// caller-supplied keys and returns recommendations for the query.
func (s *Service) mergeMemory(ctx context.Context, key, query string, bc map[string]interface{}) *models.ContextualRecommendations {
	cc, err := s.memory.ConversationContext(ctx, key)
	if err != nil {
		s.logger.Warn("conversation context unavailable", map[string]interface{}{"key": key, "error": err})
		return nil
	}
	if cc.TurnCount > 0 {
		setDefault(bc, "recent_intent", string(cc.DominantIntent))
		setDefault(bc, "recent_complexity", string(cc.DominantComplexity))
		setDefault(bc, "response_style", cc.ResponseStyle)
		if len(cc.TopBusinessContext) > 0 {
			setDefault(bc, "recurring_context", cc.TopBusinessContext)
		}
	}

	recs, err := s.memory.ContextualRecommendations(ctx, key, query)
	if err != nil {
		s.logger.Warn("recommendations unavailable", map[string]interface{}{"key": key, "error": err})
		return nil
	}
	return recs
}

// executeSecondary runs every secondary concurrently in collaborative mode.
// Otherwise only the first secondary runs, as the validating step of the plan.
func (s *Service) executeSecondary(ctx context.Context, d *models.RoutingDecision, query string) []AgentOutcome {
	if len(d.Secondary) == 0 {
		return []AgentOutcome{}
	}
	if !d.CollaborativeMode {
		return []AgentOutcome{s.execute(ctx, d.Secondary[0], query, RoleSecondary)}
	}

	outcomes := make([]AgentOutcome, len(d.Secondary))
	var g errgroup.Group
	for i, sel := range d.Secondary {
		i, sel := i, sel
		g.Go(func() error {
			outcomes[i] = s.execute(ctx, sel, query, RoleSecondary)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) execute(ctx context.Context, sel models.AgentSelection, query, role string) AgentOutcome {
	ctx, span := s.obs.Tracer().Start(ctx, "advisor.execute", trace.WithAttributes(
		attribute.String("agent", sel.Agent),
		attribute.String("role", role),
	))
	defer span.End()

	start := s.now()
	res, err := s.executor.Execute(ctx, sel, query)
	out := AgentOutcome{
		Agent:     sel.Agent,
		Role:      role,
		Response:  res.Response,
		Insights:  nonNil(res.Insights),
		FollowUps: nonNil(res.FollowUpSuggestions),
		Success:   err == nil && res.Success,
		Duration:  s.now().Sub(start),
	}
	if err != nil {
		out.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "agent execution failed")
		s.logger.Warn("agent execution failed", map[string]interface{}{
			"agent": sel.Agent,
			"role":  role,
			"error": err,
		})
	}
	return out
}

func (s *Service) recordOutcome(ctx context.Context, sel models.AgentSelection, out AgentOutcome) {
	if _, err := s.recorder.RecordOutcome(ctx, sel.Agent, sel.Confidence, out.Success); err != nil {
		s.logger.Warn("failed to record agent outcome", map[string]interface{}{
			"agent": sel.Agent,
			"error": err,
		})
	}
}

func (s *Service) buildTurn(query string, d *models.RoutingDecision, resp *Response, start time.Time) models.ConversationTurn {
	insights := append([]string{}, resp.Primary.Insights...)
	for _, out := range resp.Secondary {
		for _, in := range out.Insights {
			insights = appendUnique(insights, in)
		}
	}

	return models.ConversationTurn{
		Timestamp:           start.UTC(),
		UserQuery:           query,
		AgentResponse:       resp.Primary.Response,
		SelectedAgent:       d.Primary.Agent,
		Analysis:            d.Analysis,
		Success:             resp.Primary.Success,
		ExecutionTime:       s.now().Sub(start),
		Insights:            insights,
		FollowUpSuggestions: resp.Primary.FollowUps,
	}
}

func (s *Service) escalate(ctx context.Context, key, query string, d *models.RoutingDecision) bool {
	err := s.escalator.Escalate(ctx, Escalation{
		Key:          key,
		Query:        query,
		PrimaryAgent: d.Primary.Agent,
		Intent:       d.Analysis.Intent,
		Urgency:      d.Analysis.Urgency,
		Reasoning:    d.Reasoning,
		RaisedAt:     s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("escalation failed", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func copyContext(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func setDefault(m map[string]interface{}, key string, v interface{}) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
