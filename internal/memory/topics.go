package memory

import "strings"

type topicBucket struct {
	name     string
	keywords []string
}

// topicTable is evaluated in declaration order; every matching topic is returned.
var topicTable = []topicBucket{
	{"pricing", []string{"price", "pricing", "charge", "cost"}},
	{"offers", []string{"offer", "guarantee", "bonus"}},
	{"lead generation", []string{"lead", "traffic", "ads", "advertising"}},
	{"sales", []string{"sales", "sell", "closing", "conversion"}},
	{"retention", []string{"retention", "churn", "retain", "renewal"}},
	{"hiring", []string{"hire", "hiring", "recruit", "team"}},
	{"operations", []string{"operations", "process", "systems", "workflow"}},
	{"marketing", []string{"marketing", "brand", "content", "audience"}},
	{"finance", []string{"revenue", "profit", "cash", "margin", "financial"}},
	{"scaling", []string{"scale", "scaling", "growth", "grow", "expand"}},
}

// ExtractTopics maps text to zero or more topics from the fixed dictionary.
func ExtractTopics(text string) []string {
	t := strings.ToLower(text)
	topics := []string{}
	for _, b := range topicTable {
		for _, kw := range b.keywords {
			if strings.Contains(t, kw) {
				topics = append(topics, b.name)
				break
			}
		}
	}
	return topics
}

// topicsOverlap is a case-insensitive substring test in either direction.
func topicsOverlap(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func overlapsAny(s string, topics []string) bool {
	for _, t := range topics {
		if topicsOverlap(s, t) {
			return true
		}
	}
	return false
}

// mentionsAny reports whether text touches one of topics, either by naming it or
// through the dictionary.
func mentionsAny(text string, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, t := range topics {
		if strings.Contains(lowered, t) {
			return true
		}
	}
	for _, found := range ExtractTopics(strings.ReplaceAll(lowered, "-", " ")) {
		if overlapsAny(found, topics) {
			return true
		}
	}
	return false
}
