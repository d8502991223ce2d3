// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/camunda"
	"expert-router/internal/common/config"
	"expert-router/internal/common/logger"
	"expert-router/internal/memory"
	"expert-router/internal/routing"

	pi "expert-router/internal/workers/memory/personalization-insights"
	rt "expert-router/internal/workers/memory/record-turn"
	ro "expert-router/internal/workers/routing/record-outcome"
	rq "expert-router/internal/workers/routing/route-query"
)

const processID = "expert-routing"

// The suite needs a running Zeebe gateway, e.g.
// E2E_ZEEBE_ADDRESS=localhost:26500 go test ./test/e2e/...
func zeebeAddress(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("E2E_ZEEBE_ADDRESS")
	if addr == "" {
		t.Skip("E2E_ZEEBE_ADDRESS not set, skipping end-to-end suite")
	}
	return addr
}

type pipeline struct {
	zeebe    *camunda.Client
	workers  *camunda.Workers
	memory   *memory.Store
	registry *routing.Registry
	redis    *miniredis.Miniredis
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	addr := zeebeAddress(t)
	log := logger.NewTestLogger(t)
	ctx := context.Background()

	zeebe, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         addr,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RetryConfig:            &camunda.RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second},
	})
	require.NoError(t, err, "zeebe gateway unreachable")
	t.Cleanup(func() { zeebe.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	reg, err := routing.NewRegistry(routing.DefaultProfiles())
	require.NoError(t, err)
	engine, err := routing.NewEngine(reg, routing.NewScorer(routing.DefaultWeights()), routing.NewAuditLog(0, nil), routing.DefaultSelectionRules(), log)
	require.NoError(t, err)
	recorder := routing.NewRecorder(reg, routing.DefaultPerformanceWindow, nil, log)
	mem := memory.NewStore(memory.DefaultConfig(), memory.NewRedisSnapshotStore(rdb, time.Hour), log)

	wcfg := config.WorkerConfig{Enabled: true, MaxJobsActive: 5, Timeout: 10000}
	workers := camunda.NewWorkers(zeebe.GetClient(), log)
	t.Cleanup(workers.Close)

	routeQuery, err := rq.NewHandler(rq.DefaultConfig(), engine, log)
	require.NoError(t, err)
	insights, err := pi.NewHandler(pi.DefaultConfig(), mem, log)
	require.NoError(t, err)
	recordTurn, err := rt.NewHandler(rt.DefaultConfig(), mem, log)
	require.NoError(t, err)
	recordOutcome, err := ro.NewHandler(ro.DefaultConfig(), recorder, log)
	require.NoError(t, err)

	require.True(t, workers.Start(rq.TaskType, wcfg, routeQuery.Handle))
	require.True(t, workers.Start(pi.TaskType, wcfg, insights.Handle))
	require.True(t, workers.Start(rt.TaskType, wcfg, recordTurn.Handle))
	require.True(t, workers.Start(ro.TaskType, wcfg, recordOutcome.Handle))

	deploy(t, zeebe.GetClient())

	return &pipeline{zeebe: zeebe, workers: workers, memory: mem, registry: reg, redis: mr}
}

func deploy(t *testing.T, client zbc.Client) {
	t.Helper()
	path := filepath.Join("..", "..", "bpmn", "expert-routing.bpmn")
	definition, err := os.ReadFile(path)
	require.NoError(t, err, "cannot read %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = client.NewDeployResourceCommand().AddResource(definition, "expert-routing.bpmn").Send(ctx)
	require.NoError(t, err, "deploy %s", path)
}

func (p *pipeline) run(t *testing.T, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd, err := p.zeebe.GetClient().NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(vars)
	require.NoError(t, err)

	res, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(res.GetVariables()), &out))
	return out
}

// ==========================
// Full Process Tests
// ==========================

func TestExpertRouting_RoutesRecordsAndLearns(t *testing.T) {
	p := newPipeline(t)

	out := p.run(t, map[string]interface{}{
		"query":  "What's wrong with my sales conversion, it's stuck",
		"userId": "e2e-user",
	})

	assert.Equal(t, "sales-conversion-expert", out["primaryAgent"])
	assert.Equal(t, "diagnose", out["queryIntent"])
	assert.Equal(t, "e2e-user", out["identityKey"])
	assert.NotEmpty(t, out["turnId"])
	assert.Equal(t, false, out["memoryEphemeral"])

	perf, ok := out["agentPerformance"].(map[string]interface{})
	require.True(t, ok, "agentPerformance missing: %v", out)
	assert.EqualValues(t, 1, perf["samples"])

	samples, ok := p.registry.Samples("sales-conversion-expert")
	require.True(t, ok)
	assert.Len(t, samples, 1)

	cc, err := p.memory.ConversationContext(context.Background(), "e2e-user")
	require.NoError(t, err)
	assert.Equal(t, 1, cc.TurnCount)
	assert.True(t, p.redis.Exists("personalization:e2e-user"))
}

func TestExpertRouting_SecondRunSeesMemory(t *testing.T) {
	p := newPipeline(t)

	p.run(t, map[string]interface{}{
		"query":     "How should I price my grand slam offer?",
		"sessionId": "e2e-session",
	})
	out := p.run(t, map[string]interface{}{
		"query":     "What bonus should I add to the offer?",
		"sessionId": "e2e-session",
	})

	assert.Equal(t, "e2e-session", out["identityKey"])
	suggested, ok := out["suggestedAgents"].([]interface{})
	require.True(t, ok, "suggestedAgents missing: %v", out)
	assert.Contains(t, suggested, "offer-architect")
}

func TestExpertRouting_AnonymousQueryIsNotRetained(t *testing.T) {
	p := newPipeline(t)

	out := p.run(t, map[string]interface{}{
		"query": "Help me write an ad for my coaching business",
	})

	assert.Equal(t, true, out["memoryEphemeral"])
	assert.Equal(t, 0, p.memory.Len())
	assert.Empty(t, p.redis.Keys())
}
