package memory

import "expert-router/internal/models"

func clonePersonalization(p *models.AgentPersonalization) *models.AgentPersonalization {
	if p == nil {
		return nil
	}
	c := *p

	c.ConversationHistory = make([]models.ConversationTurn, len(p.ConversationHistory))
	for i, t := range p.ConversationHistory {
		c.ConversationHistory[i] = cloneTurn(t)
	}

	c.BusinessContext.Challenges = cloneStrings(p.BusinessContext.Challenges)
	c.BusinessContext.PreferredFrameworks = cloneStrings(p.BusinessContext.PreferredFrameworks)

	c.LearningPatterns.AgentScores = cloneScores(p.LearningPatterns.AgentScores)
	c.LearningPatterns.FrameworkScores = cloneScores(p.LearningPatterns.FrameworkScores)
	c.LearningPatterns.SuccessfulQueryTypes = cloneStrings(p.LearningPatterns.SuccessfulQueryTypes)
	c.LearningPatterns.CommonMisunderstandings = cloneStrings(p.LearningPatterns.CommonMisunderstandings)

	c.ContextualMemory.RecentTopics = cloneStrings(p.ContextualMemory.RecentTopics)
	c.ContextualMemory.OngoingProjects = cloneStrings(p.ContextualMemory.OngoingProjects)
	c.ContextualMemory.PastRecommendations = cloneStrings(p.ContextualMemory.PastRecommendations)
	c.ContextualMemory.ImplementedSuggestions = cloneStrings(p.ContextualMemory.ImplementedSuggestions)
	c.ContextualMemory.CurrentGoals = cloneStrings(p.ContextualMemory.CurrentGoals)
	return &c
}

func cloneTurn(t models.ConversationTurn) models.ConversationTurn {
	t.Analysis.BusinessContext = append([]string(nil), t.Analysis.BusinessContext...)
	t.Analysis.Frameworks = append([]string(nil), t.Analysis.Frameworks...)
	t.Insights = append([]string(nil), t.Insights...)
	t.FollowUpSuggestions = append([]string(nil), t.FollowUpSuggestions...)
	return t
}

func cloneStrings(s []string) []string {
	return append([]string{}, s...)
}

func cloneScores(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fillDefaults allocates anything a decoded snapshot left nil.
func fillDefaults(p *models.AgentPersonalization) {
	if p.ConversationHistory == nil {
		p.ConversationHistory = []models.ConversationTurn{}
	}
	if p.LearningPatterns.AgentScores == nil {
		p.LearningPatterns.AgentScores = map[string]float64{}
	}
	if p.LearningPatterns.FrameworkScores == nil {
		p.LearningPatterns.FrameworkScores = map[string]float64{}
	}
	if p.Adaptations.ResponseStyle == "" {
		p.Adaptations.ResponseStyle = models.DefaultResponseStyle
	}
	if p.Adaptations.DetailLevel == "" {
		p.Adaptations.DetailLevel = models.DefaultDetailLevel
	}
	p.BusinessContext.Challenges = cloneStrings(p.BusinessContext.Challenges)
	p.BusinessContext.PreferredFrameworks = cloneStrings(p.BusinessContext.PreferredFrameworks)
	p.LearningPatterns.SuccessfulQueryTypes = cloneStrings(p.LearningPatterns.SuccessfulQueryTypes)
	p.LearningPatterns.CommonMisunderstandings = cloneStrings(p.LearningPatterns.CommonMisunderstandings)
	p.ContextualMemory.RecentTopics = cloneStrings(p.ContextualMemory.RecentTopics)
	p.ContextualMemory.OngoingProjects = cloneStrings(p.ContextualMemory.OngoingProjects)
	p.ContextualMemory.PastRecommendations = cloneStrings(p.ContextualMemory.PastRecommendations)
	p.ContextualMemory.ImplementedSuggestions = cloneStrings(p.ContextualMemory.ImplementedSuggestions)
	p.ContextualMemory.CurrentGoals = cloneStrings(p.ContextualMemory.CurrentGoals)
}
