package consultadvisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/advisor"
	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/memory"
	"expert-router/internal/routing"
)

// ==========================
// Test Helper Functions
// ==========================

// agentService fakes the downstream specialist service.
type agentService struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
}

func (a *agentService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /agents/{name}/execute
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "agents" || parts[2] != "execute" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	name := parts[1]

	a.mu.Lock()
	a.calls = append(a.calls, name)
	failing := a.failing[name]
	a.mu.Unlock()

	if failing {
		http.Error(w, "specialist offline", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(advisor.ExecutionResult{
		Response:            name + " answered: " + req.Query,
		Insights:            []string{"Track your close rate weekly"},
		FollowUpSuggestions: []string{"What is your current close rate?"},
		Success:             true,
	})
}

func (a *agentService) called() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *agentService) fail(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failing[name] = true
}

type fixture struct {
	handler  *Handler
	agents   *agentService
	memory   *memory.Store
	registry *routing.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)

	agents := &agentService{failing: map[string]bool{}}
	srv := httptest.NewServer(agents)
	t.Cleanup(srv.Close)

	reg, err := routing.NewRegistry(routing.DefaultProfiles())
	require.NoError(t, err)
	engine, err := routing.NewEngine(reg, nil, nil, routing.DefaultSelectionRules(), log)
	require.NoError(t, err)
	recorder := routing.NewRecorder(reg, routing.DefaultPerformanceWindow, nil, log)
	mem := memory.NewStore(memory.DefaultConfig(), nil, log)

	svc := advisor.NewService(engine, recorder, mem, advisor.NewHTTPExecutor(srv.URL, 5*time.Second), nil, nil, log)
	h, err := NewHandler(DefaultConfig(), svc, nil, log)
	require.NoError(t, err)

	return &fixture{handler: h, agents: agents, memory: mem, registry: reg}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ConsultsOverHTTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.handler.Execute(ctx, &Input{
		Query:  "What's wrong with my sales conversion, it's stuck",
		UserID: "user-1",
	})
	require.NoError(t, err)

	c := out.Consultation
	assert.Equal(t, "sales-conversion-expert", c.Primary.Agent)
	assert.True(t, c.Primary.Success)
	assert.Contains(t, c.Primary.Response, "sales-conversion-expert answered")
	require.Len(t, c.Secondary, 1)
	assert.Equal(t, "business-diagnostician", c.Secondary[0].Agent)
	assert.ElementsMatch(t, []string{"sales-conversion-expert", "business-diagnostician"}, f.agents.called())

	vars := out.Variables()
	assert.Equal(t, "user-1", vars["identityKey"])
	assert.Equal(t, true, vars["primarySucceeded"])
	assert.Equal(t, false, vars["escalated"])
	assert.NotEmpty(t, vars["turnId"])

	p, err := f.memory.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, p.ConversationHistory, 1)
	assert.Equal(t, c.TurnID, p.ConversationHistory[0].ID)

	samples, ok := f.registry.Samples("sales-conversion-expert")
	require.True(t, ok)
	assert.Equal(t, []float64{c.Decision.Primary.Confidence}, samples)
}

func TestHandler_Execute_FailingSpecialistStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.agents.fail("sales-conversion-expert")

	out, err := f.handler.Execute(context.Background(), &Input{
		Query:  "What's wrong with my sales conversion, it's stuck",
		UserID: "user-2",
	})
	require.NoError(t, err)

	assert.False(t, out.Consultation.Primary.Success)
	assert.Contains(t, out.Consultation.Primary.Error, "AGENT_EXECUTION_FAILED")
	assert.Equal(t, false, out.Variables()["primarySucceeded"])

	samples, _ := f.registry.Samples("sales-conversion-expert")
	assert.Equal(t, []float64{0}, samples)
}

func TestHandler_Execute_MemoryDefaultsOn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.handler.Execute(ctx, &Input{Query: "How should I price my offer?", UserID: "user-3"})
	require.NoError(t, err)

	out, err := f.handler.Execute(ctx, &Input{Query: "Is my pricing too low?", UserID: "user-3"})
	require.NoError(t, err)
	require.NotNil(t, out.Consultation.Recommendations)
	assert.Contains(t, out.Consultation.Recommendations.RelevantTopics, "pricing")

	off := false
	out, err = f.handler.Execute(ctx, &Input{Query: "Is my pricing too low?", UserID: "user-3", UseMemory: &off})
	require.NoError(t, err)
	assert.Nil(t, out.Consultation.Recommendations)
}

// ==========================
// Input Validation Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		vars    string
		wantErr bool
	}{
		{"minimal", `{"query":"help me grow"}`, false},
		{"full", `{"query":"help","userId":"u","sessionId":"s","businessContext":{"industry":"saas"},"sessionType":"workshop","useMemory":false}`, false},
		{"empty query", `{"query":""}`, true},
		{"memory flag as string", `{"query":"help","useMemory":"yes"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := f.handler.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: tt.vars}})
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeInputValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, input.request().Query)
		})
	}
}

func TestInput_Request_UseMemoryDefault(t *testing.T) {
	assert.True(t, (&Input{Query: "q"}).request().UseMemory)

	off := false
	assert.False(t, (&Input{Query: "q", UseMemory: &off}).request().UseMemory)
}
