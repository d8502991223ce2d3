package routing

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/common/logger"
)

type fakePerformanceStore struct {
	mu      sync.Mutex
	saved   map[string]PerformanceSnapshot
	loaded  map[string]PerformanceSnapshot
	saveErr error
	loadErr error
}

func (f *fakePerformanceStore) LoadAll(ctx context.Context) (map[string]PerformanceSnapshot, error) {
	return f.loaded, f.loadErr
}

func (f *fakePerformanceStore) Save(ctx context.Context, agent string, snap PerformanceSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]PerformanceSnapshot{}
	}
	f.saved[agent] = snap
	return f.saveErr
}

func TestRecorder_RollingWindow(t *testing.T) {
	reg := newTestRegistry(t)
	rec := NewRecorder(reg, 50, nil, logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := rec.RecordOutcome(ctx, "offer-architect", 0.9, true)
	require.NoError(t, err)
	_, err = rec.RecordOutcome(ctx, "offer-architect", 0.7, false)
	require.NoError(t, err)
	snap, err := rec.RecordOutcome(ctx, "offer-architect", 0.6, true)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.9, 0, 0.6}, snap.Samples)
	assert.InDelta(t, 0.5, snap.AverageConfidence, 1e-9)
	assert.InDelta(t, 2.0/3.0, snap.SuccessRate, 1e-9)

	c, _ := reg.Get("offer-architect")
	assert.InDelta(t, 0.5, c.AverageConfidence, 1e-9)
	assert.InDelta(t, 2.0/3.0, c.SuccessRate, 1e-9)
}

func TestRecorder_WindowEvictsOldestBeyondFifty(t *testing.T) {
	reg := newTestRegistry(t)
	rec := NewRecorder(reg, 0, nil, logger.NewNoOpLogger())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := rec.RecordOutcome(ctx, "sales-conversion-expert", 0.2, false)
		require.NoError(t, err)
	}
	for i := 0; i < 60; i++ {
		_, err := rec.RecordOutcome(ctx, "sales-conversion-expert", 0.8, true)
		require.NoError(t, err)
	}

	samples, ok := reg.Samples("sales-conversion-expert")
	require.True(t, ok)
	assert.Len(t, samples, 50)

	c, _ := reg.Get("sales-conversion-expert")
	assert.InDelta(t, 0.8, c.AverageConfidence, 1e-9)
	assert.InDelta(t, 1.0, c.SuccessRate, 1e-9)
}

func TestRecorder_ClampsConfidence(t *testing.T) {
	reg := newTestRegistry(t)
	rec := NewRecorder(reg, 50, nil, logger.NewNoOpLogger())

	snap, err := rec.RecordOutcome(context.Background(), "offer-architect", 1.7, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, snap.Samples)

	snap, err = rec.RecordOutcome(context.Background(), "offer-architect", -3, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, snap.Samples)
	assert.InDelta(t, 0.5, snap.SuccessRate, 1e-9)
}

func TestRecorder_UnknownAgentLeavesStateUntouched(t *testing.T) {
	reg := newTestRegistry(t)
	store := &fakePerformanceStore{}
	rec := NewRecorder(reg, 50, store, logger.NewTestLogger(t))
	before := reg.Snapshot()

	_, err := rec.RecordOutcome(context.Background(), "ghost", 0.9, true)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownAgent))
	assert.Equal(t, before, reg.Snapshot())
	assert.Empty(t, store.saved)
}

func TestRecorder_PersistsAndToleratesStoreFailure(t *testing.T) {
	reg := newTestRegistry(t)
	store := &fakePerformanceStore{saveErr: stderrors.New("db down")}
	rec := NewRecorder(reg, 50, store, logger.NewTestLogger(t))

	snap, err := rec.RecordOutcome(context.Background(), "business-diagnostician", 0.4, true)
	require.NoError(t, err)
	assert.Equal(t, snap, store.saved["business-diagnostician"])

	c, _ := reg.Get("business-diagnostician")
	assert.InDelta(t, 0.4, c.AverageConfidence, 1e-9)
}

func TestRecorder_Restore(t *testing.T) {
	reg := newTestRegistry(t)
	store := &fakePerformanceStore{loaded: map[string]PerformanceSnapshot{
		"money-model-strategist": {Samples: []float64{0.5, 0, 1}},
		"retired-agent":          {Samples: []float64{1}},
	}}
	rec := NewRecorder(reg, 50, store, logger.NewTestLogger(t))

	n, err := rec.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, _ := reg.Get("money-model-strategist")
	assert.InDelta(t, 0.5, c.AverageConfidence, 1e-9)
	assert.InDelta(t, 2.0/3.0, c.SuccessRate, 1e-9)

	store.loadErr = stderrors.New("boom")
	_, err = rec.Restore(context.Background())
	assert.Error(t, err)

	n, err = NewRecorder(reg, 50, nil, logger.NewNoOpLogger()).Restore(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecorder_ConcurrentOutcomes(t *testing.T) {
	reg := newTestRegistry(t)
	rec := NewRecorder(reg, 50, nil, logger.NewNoOpLogger())
	engine := newTestEngine(t, reg)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = rec.RecordOutcome(context.Background(), "lead-generation-specialist", 0.5, true)
		}()
		go func() {
			defer wg.Done()
			_, _ = engine.Route("more leads from ads", nil, "")
		}()
	}
	wg.Wait()

	samples, _ := reg.Samples("lead-generation-specialist")
	assert.Len(t, samples, 40)
	c, _ := reg.Get("lead-generation-specialist")
	assert.GreaterOrEqual(t, c.SuccessRate, 0.0)
	assert.LessOrEqual(t, c.SuccessRate, 1.0)
}

// sequencePerformanceStore records the window length of every save in arrival order.
type sequencePerformanceStore struct {
	mu      sync.Mutex
	lengths []int
	last    PerformanceSnapshot
}

func (s *sequencePerformanceStore) LoadAll(ctx context.Context) (map[string]PerformanceSnapshot, error) {
	return nil, nil
}

func (s *sequencePerformanceStore) Save(ctx context.Context, agent string, snap PerformanceSnapshot) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lengths = append(s.lengths, len(snap.Samples))
	s.last = snap
	return nil
}

func TestRecorder_ConcurrentOutcomesPersistInOrder(t *testing.T) {
	reg := newTestRegistry(t)
	store := &sequencePerformanceStore{}
	rec := NewRecorder(reg, 50, store, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = rec.RecordOutcome(context.Background(), "offer-architect", 0.5, i%2 == 0)
		}(i)
	}
	wg.Wait()

	require.Len(t, store.lengths, 30)
	for i, n := range store.lengths {
		assert.Equal(t, i+1, n, "save %d", i)
	}
	samples, _ := reg.Samples("offer-architect")
	assert.Equal(t, samples, store.last.Samples)
}
