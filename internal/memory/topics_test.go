package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTopics(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"How should I price my offer?", []string{"pricing", "offers"}},
		{"Our churn is killing revenue", []string{"retention", "finance"}},
		{"HIRING a team to scale", []string{"hiring", "scaling"}},
		{"hello", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTopics(tt.text))
		})
	}
}

func TestTopicsOverlap(t *testing.T) {
	assert.True(t, topicsOverlap("lead generation", "lead"))
	assert.True(t, topicsOverlap("Sales", "sales"))
	assert.False(t, topicsOverlap("pricing", "hiring"))
	assert.False(t, topicsOverlap("", "pricing"))
}
