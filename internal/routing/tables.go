package routing

import (
	"strings"

	"expert-router/internal/models"
)

// bucket is one named keyword set. Tables of buckets are evaluated in
// declaration order.
type bucket struct {
	name     string
	keywords []string
}

// matches reports whether any keyword occurs in the lowercased text.
func (b bucket) matches(text string) bool {
	for _, kw := range b.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// firstMatch returns the name of the first bucket that matches text.
func firstMatch(table []bucket, text string) (string, bool) {
	for _, b := range table {
		if b.matches(text) {
			return b.name, true
		}
	}
	return "", false
}

// allMatches returns every bucket name that matches text, in table order.
func allMatches(table []bucket, text string) []string {
	out := []string{}
	for _, b := range table {
		if b.matches(text) {
			out = append(out, b.name)
		}
	}
	return out
}

// "plan" alone is avoided because it is a substring of "explain".
var intentTable = []bucket{
	{string(models.IntentAnalyze), []string{"analyze", "analyse", "analysis", "review", "evaluate", "assess", "audit", "breakdown"}},
	{string(models.IntentOptimize), []string{"optimize", "optimise", "improve", "increase", "boost", "maximize", "better"}},
	{string(models.IntentDiagnose), []string{"wrong", "problem", "issue", "why", "stuck", "struggling", "not working", "failing", "diagnose"}},
	{string(models.IntentPlan), []string{"plan for", "planning", "roadmap", "strategy", "next steps", "game plan"}},
	{string(models.IntentCompare), []string{"compare", "versus", " vs ", "difference between", "which is better"}},
	{string(models.IntentLearn), []string{"learn", "explain", "what is", "understand", "teach"}},
	{string(models.IntentCreate), []string{"create", "build", "design", "write", "develop", "make"}},
	{string(models.IntentFix), []string{"fix", "solve", "repair", "resolve"}},
}

var urgencyTable = []bucket{
	{string(models.UrgencyCritical), []string{"urgent", "emergency", "asap", "immediately", "crisis", "critical"}},
	{string(models.UrgencyHigh), []string{"soon", "quickly", "this week", "important", "priority"}},
	{string(models.UrgencyMedium), []string{"next month", "planning", "when possible"}},
	{string(models.UrgencyLow), []string{"eventually", "someday", "no rush", "long term", "curious"}},
}

var businessContextTable = []bucket{
	{"coaching", []string{"coach", "mentor", "consulting"}},
	{"ecommerce", []string{"ecommerce", "e-commerce", "online store", "shopify", "products"}},
	{"saas", []string{"saas", "software", "subscription", "platform"}},
	{"agency", []string{"agency", "clients", "client work", "done for you"}},
	{"local", []string{"local", "brick and mortar", "storefront", "restaurant", "gym"}},
	{"online", []string{"online", "digital", "course", "virtual"}},
	{"startup", []string{"startup", "start-up", "early stage", "just started", "new business"}},
	{"scaling", []string{"scale", "scaling", "grow", "expand"}},
}

// frameworkTable names the methodologies the router recognizes. The bucket
// name is the canonical framework tag.
var frameworkTable = []bucket{
	{"grand slam offer", []string{"grand slam offer", "grand slam"}},
	{"value equation", []string{"value equation", "dream outcome", "perceived likelihood"}},
	{"core four", []string{"core four", "warm outreach", "cold outreach"}},
	{"money model", []string{"money model", "attraction offer"}},
	{"closer", []string{"closer framework", "closer"}},
	{"lead magnet", []string{"lead magnet"}},
	{"scaling roadmap", []string{"scaling roadmap", "scaling stages"}},
}

// complexityConcepts each add one point when present.
var complexityConcepts = []string{"offer", "money model", "financial", "marketing", "sales", "operations"}

var strategicPhrases = []string{
	"comprehensive", "entire business", "complete overhaul", "long-term strategy", "overall strategy", "full audit",
}

// DefaultProfiles is the built-in capability registry used when no profile
// file is configured.
func DefaultProfiles() []models.AgentCapability {
	return []models.AgentCapability{
		{
			Name:                   "offer-architect",
			Description:            "Designs irresistible offers, pricing and guarantees",
			Expertise:              []string{"offer", "pricing", "value equation", "grand slam offer", "guarantee", "bonus"},
			Priority:               9,
			AverageConfidence:      0.86,
			SuccessRate:            0.9,
			AvgResponseTimeSeconds: 2.5,
		},
		{
			Name:                   "money-model-strategist",
			Description:            "Structures upsells, continuity and cash flow",
			Expertise:              []string{"money model", "upsell", "downsell", "continuity", "revenue", "ltv", "financial", "cash flow"},
			Priority:               8,
			AverageConfidence:      0.84,
			SuccessRate:            0.88,
			AvgResponseTimeSeconds: 3.0,
		},
		{
			Name:                   "lead-generation-specialist",
			Description:            "Builds lead flow through ads, content and outreach",
			Expertise:              []string{"leads", "lead generation", "ads", "advertising", "marketing", "traffic", "core four", "content"},
			Priority:               8,
			AverageConfidence:      0.83,
			SuccessRate:            0.87,
			AvgResponseTimeSeconds: 1.8,
		},
		{
			Name:                   "sales-conversion-expert",
			Description:            "Improves sales process, closing and conversion",
			Expertise:              []string{"sales", "conversion", "closing", "closer", "objection", "funnel", "close rate"},
			Priority:               8,
			AverageConfidence:      0.85,
			SuccessRate:            0.89,
			AvgResponseTimeSeconds: 1.5,
		},
		{
			Name:                   "operations-scaling-advisor",
			Description:            "Builds systems, teams and processes that scale",
			Expertise:              []string{"operations", "scaling", "systems", "hiring", "team", "process", "delegation"},
			Priority:               7,
			AverageConfidence:      0.82,
			SuccessRate:            0.86,
			AvgResponseTimeSeconds: 2.8,
		},
		{
			Name:                   "business-diagnostician",
			Description:            "Finds the constraint holding the business back",
			Expertise:              []string{"diagnose", "problem", "bottleneck", "stuck", "churn", "retention", "metrics"},
			Priority:               7,
			AverageConfidence:      0.8,
			SuccessRate:            0.85,
			AvgResponseTimeSeconds: 2.2,
		},
		{
			Name:                   "strategy-orchestrator",
			Description:            "Coordinates whole-business strategy across specialists",
			Expertise:              []string{"strategy", "growth", "business model", "vision", "entire business", "comprehensive"},
			Priority:               6,
			AverageConfidence:      0.81,
			SuccessRate:            0.84,
			AvgResponseTimeSeconds: 3.5,
		},
	}
}
