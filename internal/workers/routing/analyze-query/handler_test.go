package analyzequery

import (
	"context"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/models"
	"expert-router/internal/routing"
)

func newTestHandler(t *testing.T) (*Handler, *routing.Engine) {
	t.Helper()
	reg, err := routing.NewRegistry(routing.DefaultProfiles())
	require.NoError(t, err)
	engine, err := routing.NewEngine(reg, nil, routing.NewAuditLog(10, nil), routing.DefaultSelectionRules(), logger.NewTestLogger(t))
	require.NoError(t, err)

	h, err := NewHandler(nil, engine, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h, engine
}

func TestHandler_Execute_AnalyzesAndAudits(t *testing.T) {
	h, engine := newTestHandler(t)

	out := h.Execute(context.Background(), &Input{
		Query:           "This is urgent, my coaching business needs more leads",
		BusinessContext: map[string]interface{}{"industry": "coaching"},
	})

	assert.Equal(t, models.UrgencyCritical, out.Analysis.Urgency)
	assert.Contains(t, out.Analysis.BusinessContext, "coaching")
	assert.Equal(t, 1, engine.AuditLog().Len())

	vars := out.Variables()
	assert.Equal(t, "critical", vars["queryUrgency"])
	assert.Equal(t, out.Analysis.Confidence, vars["analysisConfidence"])
}

func TestHandler_Execute_MatchesAnalyzer(t *testing.T) {
	h, _ := newTestHandler(t)
	query := "comprehensive plan covering offer, pricing, marketing, sales and operations"

	out := h.Execute(context.Background(), &Input{Query: query})
	assert.Equal(t, routing.Analyze(query, nil), out.Analysis)
}

func TestHandler_ParseInput(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"query":"hi"}`}})
	assert.NoError(t, err)

	_, err = h.parseInput(entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"businessContext":{}}`}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputValidationFailed))
}
