package routing

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expert-router/internal/common/errors"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresPerformanceStore_EnsureSchema(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS agent_performance").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPostgresPerformanceStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPerformanceStore_Save(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("INSERT INTO agent_performance").
		WithArgs("offer-architect", 0.45, 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPostgresPerformanceStore(db)
	err := store.Save(context.Background(), "offer-architect", PerformanceSnapshot{
		AverageConfidence: 0.45,
		SuccessRate:       0.5,
		Samples:           []float64{0.9, 0},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPerformanceStore_SaveFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec("INSERT INTO agent_performance").WillReturnError(stderrors.New("connection reset"))

	err := NewPostgresPerformanceStore(db).Save(context.Background(), "offer-architect", PerformanceSnapshot{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePerformanceStoreFailed))
}

func TestPostgresPerformanceStore_LoadAll(t *testing.T) {
	db, mock := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"agent_name", "average_confidence", "success_rate", "samples"}).
		AddRow("offer-architect", 0.45, 0.5, []byte(`[0.9,0]`)).
		AddRow("sales-conversion-expert", 0.8, 1.0, []byte(`[0.8]`))
	mock.ExpectQuery("SELECT agent_name, average_confidence, success_rate, samples").WillReturnRows(rows)

	snaps, err := NewPostgresPerformanceStore(db).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, []float64{0.9, 0}, snaps["offer-architect"].Samples)
	assert.Equal(t, 0.8, snaps["sales-conversion-expert"].AverageConfidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPerformanceStore_LoadAllErrors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery("SELECT agent_name").WillReturnError(sql.ErrConnDone)

		_, err := NewPostgresPerformanceStore(db).LoadAll(context.Background())
		assert.True(t, errors.HasCode(err, errors.ErrCodePerformanceStoreFailed))
	})

	t.Run("corrupt samples", func(t *testing.T) {
		db, mock := setupMockDB(t)
		rows := sqlmock.NewRows([]string{"agent_name", "average_confidence", "success_rate", "samples"}).
			AddRow("offer-architect", 0.45, 0.5, []byte(`not json`))
		mock.ExpectQuery("SELECT agent_name").WillReturnRows(rows)

		_, err := NewPostgresPerformanceStore(db).LoadAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "offer-architect")
	})
}
