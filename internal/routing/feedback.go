package routing

import (
	"context"
	"math"
	"sync"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
	"expert-router/internal/common/metrics"
)

const DefaultPerformanceWindow = 50

// PerformanceSnapshot is an agent's rolling stats together with the raw window.
type PerformanceSnapshot struct {
	AverageConfidence float64   `json:"averageConfidence"`
	SuccessRate       float64   `json:"successRate"`
	Samples           []float64 `json:"samples"`
}

// PerformanceStore persists rolling windows across restarts.
type PerformanceStore interface {
	LoadAll(ctx context.Context) (map[string]PerformanceSnapshot, error)
	Save(ctx context.Context, agent string, snap PerformanceSnapshot) error
}

// Recorder feeds observed outcomes back into the registry's rolling stats.
// Outcomes for one agent are applied and persisted one at a time, so the
// stored window never lags behind an older one.
type Recorder struct {
	registry *Registry
	window   int
	store    PerformanceStore
	logger   logger.Logger

	agentMu map[string]*sync.Mutex
}

// NewRecorder builds a recorder. store may be nil for purely in-process stats.
func NewRecorder(registry *Registry, window int, store PerformanceStore, log logger.Logger) *Recorder {
	if window <= 0 {
		window = DefaultPerformanceWindow
	}
	agentMu := map[string]*sync.Mutex{}
	for _, name := range registry.Names() {
		agentMu[name] = &sync.Mutex{}
	}
	return &Recorder{
		registry: registry,
		window:   window,
		store:    store,
		logger:   logger.ForComponent(log, "performance-recorder"),
		agentMu:  agentMu,
	}
}

// RecordOutcome adds one sample (confidence on success, 0 on failure) to the
// agent's window. Unknown agents are reported and leave all state untouched.
// Persistence failures are logged; the in-memory update stands.
func (r *Recorder) RecordOutcome(ctx context.Context, agent string, confidence float64, success bool) (PerformanceSnapshot, error) {
	sample := 0.0
	if success {
		sample = clamp01(confidence)
	}

	if mu, ok := r.agentMu[agent]; ok {
		mu.Lock()
		defer mu.Unlock()
	}

	snap, ok := r.registry.addSample(agent, sample, r.window)
	if !ok {
		r.logger.Warn("feedback for unknown agent ignored", map[string]interface{}{"agent": agent})
		return PerformanceSnapshot{}, errors.NewUnknownAgentError(agent)
	}
	metrics.FeedbackOutcomes.WithLabelValues(agent, metrics.Outcome(success)).Inc()

	r.logger.Info("agent outcome recorded", map[string]interface{}{
		"agent":             agent,
		"success":           success,
		"averageConfidence": snap.AverageConfidence,
		"successRate":       snap.SuccessRate,
		"samples":           len(snap.Samples),
	})

	if r.store != nil {
		if err := r.store.Save(ctx, agent, snap); err != nil {
			r.logger.Warn("failed to persist agent performance", map[string]interface{}{
				"agent": agent,
				"error": err,
			})
		}
	}
	return snap, nil
}

// Restore loads persisted windows into the registry. Agents no longer
// registered are skipped.
func (r *Recorder) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	snaps, err := r.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for agent, snap := range snaps {
		if r.registry.restore(agent, snap.Samples, r.window) {
			restored++
			continue
		}
		r.logger.Debug("skipping persisted performance", map[string]interface{}{"agent": agent})
	}
	r.logger.Info("agent performance restored", map[string]interface{}{"agents": restored})
	return restored, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
