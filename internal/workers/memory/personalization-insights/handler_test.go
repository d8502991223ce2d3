package personalizationinsights

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/memory"
	"expert-router/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func newStore(t *testing.T, rdb *redis.Client) *memory.Store {
	return memory.NewStore(memory.DefaultConfig(), memory.NewRedisSnapshotStore(rdb, time.Hour), logger.NewTestLogger(t))
}

// seedHistory records one successful pricing turn and one failed sales turn.
func seedHistory(t *testing.T, store *memory.Store, key string) {
	t.Helper()
	ctx := context.Background()
	turns := []models.ConversationTurn{
		{
			UserQuery:     "How should I price my coaching offer?",
			SelectedAgent: "offer-architect",
			Success:       true,
			Insights:      []string{"Raise the price and add a guarantee"},
		},
		{
			UserQuery:     "My sales conversion is stuck",
			SelectedAgent: "sales-conversion-expert",
			Success:       false,
		},
	}
	for _, turn := range turns {
		_, err := store.RecordTurn(ctx, key, turn)
		require.NoError(t, err)
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ReadsSnapshotAfterRestart(t *testing.T) {
	rdb := setupRedis(t)
	seedHistory(t, newStore(t, rdb), "user-5")

	h, err := NewHandler(DefaultConfig(), newStore(t, rdb), logger.NewTestLogger(t))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &Input{UserID: "user-5", Query: "What should I charge for my offer?"})
	require.NoError(t, err)

	assert.Equal(t, "user-5", out.Key)
	assert.Equal(t, []string{"offer-architect"}, out.Recommendations.SuggestedAgents)
	assert.Equal(t, []string{"offers", "pricing"}, out.Recommendations.RelevantTopics)
	assert.Equal(t, []string{"Raise the price and add a guarantee"}, out.Recommendations.RelevantInsights)
	assert.Empty(t, out.Recommendations.Warnings)

	assert.Equal(t, 2, out.Context.TurnCount)
	assert.Equal(t, models.DefaultResponseStyle, out.Context.ResponseStyle)
}

func TestHandler_Execute_WarnsAboutPastFailures(t *testing.T) {
	store := newStore(t, setupRedis(t))
	seedHistory(t, store, "user-5")

	h, err := NewHandler(nil, store, logger.NewTestLogger(t))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &Input{UserID: "user-5", Query: "sales calls are not closing"})
	require.NoError(t, err)
	require.Len(t, out.Recommendations.Warnings, 1)
	assert.Contains(t, out.Recommendations.Warnings[0], "sales-conversion-expert")

	vars := out.Variables()
	assert.Equal(t, out.Recommendations.Warnings, vars["memoryWarnings"])
}

func TestHandler_Execute_UnknownIdentityHasDefaults(t *testing.T) {
	store := newStore(t, setupRedis(t))
	h, err := NewHandler(nil, store, logger.NewTestLogger(t))
	require.NoError(t, err)

	for _, in := range []*Input{
		{UserID: "nobody", Query: "pricing"},
		{Query: "pricing"},
	} {
		out, err := h.Execute(context.Background(), in)
		require.NoError(t, err)

		assert.Empty(t, out.Recommendations.SuggestedAgents)
		assert.NotNil(t, out.Recommendations.Warnings)
		assert.Equal(t, 0, out.Context.TurnCount)
		assert.Equal(t, models.IntentGeneral, out.Context.DominantIntent)
		assert.Equal(t, models.ComplexitySimple, out.Context.DominantComplexity)
	}
	assert.Zero(t, store.Len())
}

func TestHandler_ParseInput(t *testing.T) {
	store := memory.NewStore(memory.DefaultConfig(), nil, logger.NewNoOpLogger())
	h, err := NewHandler(nil, store, logger.NewNoOpLogger())
	require.NoError(t, err)

	_, err = h.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"userId":"u","query":""}`}})
	assert.NoError(t, err)

	_, err = h.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"userId":"u"}`}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputValidationFailed))
}
