package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/models"
)

func TestNewRegistry_DefaultProfiles(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, 7, reg.Len())
	assert.Equal(t, []string{
		"offer-architect",
		"money-model-strategist",
		"lead-generation-specialist",
		"sales-conversion-expert",
		"operations-scaling-advisor",
		"business-diagnostician",
		"strategy-orchestrator",
	}, reg.Names())
}

func TestNewRegistry_RejectsMalformedProfiles(t *testing.T) {
	tests := []struct {
		name     string
		profiles []models.AgentCapability
	}{
		{"empty", nil},
		{"blank name", []models.AgentCapability{{Name: "  ", Expertise: []string{"x"}}}},
		{"duplicate", []models.AgentCapability{
			{Name: "a", Expertise: []string{"x"}},
			{Name: "a", Expertise: []string{"y"}},
		}},
		{"no expertise", []models.AgentCapability{{Name: "a"}}},
		{"success rate above one", []models.AgentCapability{{Name: "a", Expertise: []string{"x"}, SuccessRate: 1.2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.profiles)
			assert.Nil(t, reg)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), "got %v", err)
		})
	}
}

func TestNewRegistry_NormalizesExpertise(t *testing.T) {
	reg, err := NewRegistry([]models.AgentCapability{{Name: "a", Expertise: []string{"  Close Rate "}}})
	require.NoError(t, err)

	c, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"close rate"}, c.Expertise)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	reg := newTestRegistry(t)

	snap := reg.Snapshot()
	snap[0].Expertise[0] = "mutated"
	snap[0].SuccessRate = 0

	again := reg.Snapshot()
	assert.Equal(t, "offer", again[0].Expertise[0])
	assert.Equal(t, 0.9, again[0].SuccessRate)

	_, ok := reg.Get("nobody")
	assert.False(t, ok)
	_, ok = reg.Samples("nobody")
	assert.False(t, ok)
}
