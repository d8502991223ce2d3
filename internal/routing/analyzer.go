package routing

import (
	"math"
	"strings"

	"expert-router/internal/models"
)

const (
	baseConfidence        = 0.5
	intentConfidence      = 0.2
	contextTagConfidence  = 0.1
	maxContextConfidence  = 0.3
	simpleConfidence      = 0.1
	maxAnalysisConfidence = 0.95
)

// Analyze turns a raw query and optional business context into a QueryAnalysis.
// It is a pure function of its inputs.
func Analyze(query string, businessContext map[string]interface{}) models.QueryAnalysis {
	text := normalize(query)

	analysis := models.QueryAnalysis{
		Intent:          DetectIntent(text),
		Complexity:      AssessComplexity(text, businessContext),
		Urgency:         DetectUrgency(text),
		BusinessContext: ExtractBusinessContext(text),
		Frameworks:      DetectFrameworks(text),
	}
	analysis.Confidence = AnalysisConfidence(analysis)
	return analysis
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// DetectIntent returns the first intent bucket with a keyword in text, or general.
func DetectIntent(text string) models.Intent {
	if name, ok := firstMatch(intentTable, normalize(text)); ok {
		return models.Intent(name)
	}
	return models.IntentGeneral
}

// DetectUrgency returns the first urgency bucket with a keyword in text, or medium.
func DetectUrgency(text string) models.Urgency {
	if name, ok := firstMatch(urgencyTable, normalize(text)); ok {
		return models.Urgency(name)
	}
	return models.UrgencyMedium
}

func ExtractBusinessContext(text string) []string {
	return allMatches(businessContextTable, normalize(text))
}

func DetectFrameworks(text string) []string {
	return allMatches(frameworkTable, normalize(text))
}

// ComplexityScore is the additive score behind AssessComplexity.
func ComplexityScore(text string, businessContext map[string]interface{}) int {
	text = normalize(text)
	score := 0

	switch words := len(strings.Fields(text)); {
	case words > 20:
		score += 2
	case words > 10:
		score++
	}

	for _, concept := range complexityConcepts {
		if strings.Contains(text, concept) {
			score++
		}
	}

	for _, phrase := range strategicPhrases {
		if strings.Contains(text, phrase) {
			score += 3
			break
		}
	}

	if len(businessContext) > 5 {
		score++
	}
	return score
}

func AssessComplexity(text string, businessContext map[string]interface{}) models.Complexity {
	switch score := ComplexityScore(text, businessContext); {
	case score >= 6:
		return models.ComplexityStrategic
	case score >= 4:
		return models.ComplexityComplex
	case score >= 2:
		return models.ComplexityMedium
	default:
		return models.ComplexitySimple
	}
}

// AnalysisConfidence derives confidence from the other analysis fields, capped at 0.95.
func AnalysisConfidence(a models.QueryAnalysis) float64 {
	c := baseConfidence
	if a.Intent != models.IntentGeneral {
		c += intentConfidence
	}
	c += math.Min(contextTagConfidence*float64(len(a.BusinessContext)), maxContextConfidence)
	if a.Complexity == models.ComplexitySimple {
		c += simpleConfidence
	}
	return round2(math.Min(c, maxAnalysisConfidence))
}

// round2 strips float noise such as 0.7999999 so analyses compare and print cleanly.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
