// internal/models/personalization.go
package models

import "time"

type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
	FeedbackNeutral  Feedback = "neutral"
)

// Valid reports whether f is one of the known feedback polarities.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackPositive, FeedbackNegative, FeedbackNeutral:
		return true
	}
	return false
}

// ConversationTurn is one completed interaction. Only UserFeedback changes after creation.
type ConversationTurn struct {
	ID                  string        `json:"id"`
	Timestamp           time.Time     `json:"timestamp"`
	UserQuery           string        `json:"userQuery"`
	AgentResponse       string        `json:"agentResponse"`
	SelectedAgent       string        `json:"selectedAgent"`
	Analysis            QueryAnalysis `json:"analysis"`
	Success             bool          `json:"success"`
	UserFeedback        Feedback      `json:"userFeedback,omitempty"`
	ExecutionTime       time.Duration `json:"executionTime"`
	Insights            []string      `json:"insights,omitempty"`
	FollowUpSuggestions []string      `json:"followUpSuggestions,omitempty"`
}

type BusinessProfile struct {
	Industry            string   `json:"industry,omitempty"`
	BusinessModel       string   `json:"businessModel,omitempty"`
	Challenges          []string `json:"challenges"`
	PreferredFrameworks []string `json:"preferredFrameworks"`
}

type LearningPatterns struct {
	AgentScores             map[string]float64 `json:"agentScores"`
	FrameworkScores         map[string]float64 `json:"frameworkScores"`
	SuccessfulQueryTypes    []string           `json:"successfulQueryTypes"`
	CommonMisunderstandings []string           `json:"commonMisunderstandings"`
}

type ContextualMemory struct {
	RecentTopics           []string `json:"recentTopics"`
	OngoingProjects        []string `json:"ongoingProjects"`
	PastRecommendations    []string `json:"pastRecommendations"`
	ImplementedSuggestions []string `json:"implementedSuggestions"`
	CurrentGoals           []string `json:"currentGoals"`
}

type Adaptations struct {
	ResponseStyle   string `json:"responseStyle"`
	DetailLevel     string `json:"detailLevel"`
	PrefersVisuals  bool   `json:"prefersVisuals"`
	PrefersExamples bool   `json:"prefersExamples"`
}

const (
	DefaultResponseStyle = "balanced"
	DefaultDetailLevel   = "moderate"
)

// AgentPersonalization is everything remembered for one identity key.
type AgentPersonalization struct {
	Key                 string             `json:"key"`
	ConversationHistory []ConversationTurn `json:"conversationHistory"`
	BusinessContext     BusinessProfile    `json:"businessContext"`
	LearningPatterns    LearningPatterns   `json:"learningPatterns"`
	ContextualMemory    ContextualMemory   `json:"contextualMemory"`
	Adaptations         Adaptations        `json:"adaptations"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// NewAgentPersonalization returns an empty personalization with every sub-structure allocated.
func NewAgentPersonalization(key string, now time.Time) *AgentPersonalization {
	return &AgentPersonalization{
		Key:                 key,
		ConversationHistory: []ConversationTurn{},
		BusinessContext: BusinessProfile{
			Challenges:          []string{},
			PreferredFrameworks: []string{},
		},
		LearningPatterns: LearningPatterns{
			AgentScores:             map[string]float64{},
			FrameworkScores:         map[string]float64{},
			SuccessfulQueryTypes:    []string{},
			CommonMisunderstandings: []string{},
		},
		ContextualMemory: ContextualMemory{
			RecentTopics:           []string{},
			OngoingProjects:        []string{},
			PastRecommendations:    []string{},
			ImplementedSuggestions: []string{},
			CurrentGoals:           []string{},
		},
		Adaptations: Adaptations{
			ResponseStyle: DefaultResponseStyle,
			DetailLevel:   DefaultDetailLevel,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ContextualRecommendations is the read-only advice derived for a new query.
type ContextualRecommendations struct {
	SuggestedAgents     []string `json:"suggestedAgents"`
	SuggestedFrameworks []string `json:"suggestedFrameworks"`
	RelevantTopics      []string `json:"relevantTopics"`
	RelevantInsights    []string `json:"relevantInsights"`
	Warnings            []string `json:"warnings"`
}

// ConversationContext summarizes the most recent turns for a key.
type ConversationContext struct {
	TurnCount          int        `json:"turnCount"`
	DominantIntent     Intent     `json:"dominantIntent"`
	DominantComplexity Complexity `json:"dominantComplexity"`
	TopBusinessContext []string   `json:"topBusinessContext"`
	ResponseStyle      string     `json:"responseStyle"`
	DetailLevel        string     `json:"detailLevel"`
}
