package routing

import (
	"sort"
	"strings"

	"expert-router/internal/common/config"
	"expert-router/internal/models"
)

// Weights are the hand-tuned scoring constants. They are configuration, not
// derived values.
type Weights struct {
	Keyword             float64
	Framework           float64
	SuccessRate         float64
	Confidence          float64
	CriticalSpeedBonus  float64
	FastResponseSeconds float64
}

func DefaultWeights() Weights {
	return Weights{
		Keyword:             20,
		Framework:           15,
		SuccessRate:         10,
		Confidence:          10,
		CriticalSpeedBonus:  10,
		FastResponseSeconds: 2,
	}
}

// WeightsFromConfig copies the routing.weights config section.
func WeightsFromConfig(w config.ScoringWeights) Weights {
	return Weights{
		Keyword:             w.Keyword,
		Framework:           w.Framework,
		SuccessRate:         w.SuccessRate,
		Confidence:          w.Confidence,
		CriticalSpeedBonus:  w.CriticalSpeedBonus,
		FastResponseSeconds: w.FastResponseSeconds,
	}
}

type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// AgentScore is one agent's score with the evidence behind it.
type AgentScore struct {
	Agent            models.AgentCapability
	Score            float64
	KeywordMatches   []string
	FrameworkMatches []string
}

// Score computes one agent's weighted score. The query is matched
// case-insensitively; the result has no upper bound.
func (s *Scorer) Score(query string, analysis models.QueryAnalysis, agent models.AgentCapability) AgentScore {
	text := normalize(query)
	w := s.weights

	res := AgentScore{Agent: agent}
	for _, kw := range agent.Expertise {
		if kw != "" && strings.Contains(text, kw) {
			res.KeywordMatches = append(res.KeywordMatches, kw)
		}
	}
	res.FrameworkMatches = frameworkOverlap(analysis.Frameworks, agent.Expertise)

	res.Score = w.Keyword*float64(len(res.KeywordMatches)) +
		w.Framework*float64(len(res.FrameworkMatches)) +
		w.SuccessRate*agent.SuccessRate +
		w.Confidence*agent.AverageConfidence +
		float64(agent.Priority)

	if analysis.Urgency == models.UrgencyCritical && agent.AvgResponseTimeSeconds < w.FastResponseSeconds {
		res.Score += w.CriticalSpeedBonus
	}
	return res
}

// Rank scores every agent and orders them by descending score. Equal scores
// keep registry declaration order.
func (s *Scorer) Rank(query string, analysis models.QueryAnalysis, agents []models.AgentCapability) []AgentScore {
	scores := make([]AgentScore, len(agents))
	for i, a := range agents {
		scores[i] = s.Score(query, analysis, a)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// frameworkOverlap returns the frameworks that contain, or are contained in,
// one of the expertise keywords.
func frameworkOverlap(frameworks, expertise []string) []string {
	var out []string
	for _, f := range frameworks {
		for _, kw := range expertise {
			if kw == "" {
				continue
			}
			if strings.Contains(f, kw) || strings.Contains(kw, f) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
