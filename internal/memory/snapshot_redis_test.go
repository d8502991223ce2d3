package memory

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
	"expert-router/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

type failingSnapshotStore struct {
	saves int
}

func (f *failingSnapshotStore) Load(ctx context.Context, key string) (*models.AgentPersonalization, error) {
	return nil, nil
}

func (f *failingSnapshotStore) Save(ctx context.Context, p *models.AgentPersonalization) error {
	f.saves++
	return stderrors.New("redis unavailable")
}

func (f *failingSnapshotStore) Delete(ctx context.Context, key string) error { return nil }

func TestRedisSnapshotStore_SurvivesRestart(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	first := newTestStore(t, NewRedisSnapshotStore(rdb, time.Hour))
	r := recordTurn(t, first, "user-7", models.ConversationTurn{
		UserQuery:     "How should I price my offer?",
		SelectedAgent: "offer-architect",
		Success:       true,
		Insights:      []string{"Anchor against the premium tier"},
	})

	assert.True(t, mr.Exists("personalization:user-7"))
	assert.Equal(t, time.Hour, mr.TTL("personalization:user-7"))

	second := newTestStore(t, NewRedisSnapshotStore(rdb, time.Hour))
	p, err := second.GetOrCreate(ctx, "user-7")
	require.NoError(t, err)
	require.Len(t, p.ConversationHistory, 1)
	assert.Equal(t, r.Turn.ID, p.ConversationHistory[0].ID)
	assert.Equal(t, 1.0, p.LearningPatterns.AgentScores["offer-architect"])
	assert.Equal(t, []string{"Anchor against the premium tier"}, p.ContextualMemory.PastRecommendations)

	require.NoError(t, second.RecordFeedback(ctx, "user-7", r.Turn.ID, models.FeedbackPositive))
	third := newTestStore(t, NewRedisSnapshotStore(rdb, time.Hour))
	p, err = third.GetOrCreate(ctx, "user-7")
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackPositive, p.ConversationHistory[0].UserFeedback)
}

func TestRedisSnapshotStore_ClearDeletesSnapshot(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := newTestStore(t, NewRedisSnapshotStore(rdb, 0))
	recordTurn(t, s, "user-8", models.ConversationTurn{UserQuery: "pricing", SelectedAgent: "offer-architect", Success: true})
	require.True(t, mr.Exists("personalization:user-8"))

	require.NoError(t, s.Clear(context.Background(), "user-8"))
	assert.False(t, mr.Exists("personalization:user-8"))
}

func TestRedisSnapshotStore_EphemeralKeysAreNotPersisted(t *testing.T) {
	mr, rdb := setupRedis(t)
	s := newTestStore(t, NewRedisSnapshotStore(rdb, 0))

	recordTurn(t, s, "", models.ConversationTurn{UserQuery: "pricing", SelectedAgent: "offer-architect", Success: true})
	assert.Empty(t, mr.Keys())
}

func TestRedisSnapshotStore_LoadMissingAndCorrupt(t *testing.T) {
	mr, rdb := setupRedis(t)
	store := NewRedisSnapshotStore(rdb, 0)
	ctx := context.Background()

	p, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, mr.Set("personalization:broken", "{not json"))
	_, err = store.Load(ctx, "broken")
	assert.Error(t, err)

	s := newTestStore(t, store)
	_, err = s.GetOrCreate(ctx, "broken")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSnapshotLoadFailed))
}

func TestStore_SnapshotLoadFailureIsRetried(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := newTestStore(t, NewRedisSnapshotStore(client, 0))
	ctx := context.Background()

	mock.ExpectGet("personalization:user-9").SetErr(stderrors.New("connection refused"))
	_, err := s.GetOrCreate(ctx, "user-9")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSnapshotLoadFailed))
	assert.Equal(t, 0, s.Len())

	mock.ExpectGet("personalization:user-9").RedisNil()
	p, err := s.GetOrCreate(ctx, "user-9")
	require.NoError(t, err)
	assert.Equal(t, "user-9", p.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SnapshotDeleteFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := newTestStore(t, NewRedisSnapshotStore(client, 0))

	mock.ExpectDel("personalization:user-10").SetErr(stderrors.New("READONLY"))
	err := s.Clear(context.Background(), "user-10")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSnapshotSaveFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SnapshotSaveFailureKeepsMemory(t *testing.T) {
	snapshots := &failingSnapshotStore{}
	s := newTestStore(t, snapshots)

	recordTurn(t, s, "user-11", models.ConversationTurn{UserQuery: "pricing", SelectedAgent: "offer-architect", Success: true})

	p, err := s.GetOrCreate(context.Background(), "user-11")
	require.NoError(t, err)
	assert.Len(t, p.ConversationHistory, 1)
	assert.Equal(t, 1, snapshots.saves)
}
