package routing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"expert-router/internal/common/errors"
)

// PostgresPerformanceStore keeps one row per agent in agent_performance.
type PostgresPerformanceStore struct {
	db *sql.DB
}

func NewPostgresPerformanceStore(db *sql.DB) *PostgresPerformanceStore {
	return &PostgresPerformanceStore{db: db}
}

const createPerformanceTable = `
CREATE TABLE IF NOT EXISTS agent_performance (
	agent_name         TEXT PRIMARY KEY,
	average_confidence DOUBLE PRECISION NOT NULL,
	success_rate       DOUBLE PRECISION NOT NULL,
	samples            JSONB NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the table if it does not exist.
func (s *PostgresPerformanceStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createPerformanceTable); err != nil {
		return errors.NewPerformanceStoreFailedError("ensure schema", err)
	}
	return nil
}

func (s *PostgresPerformanceStore) LoadAll(ctx context.Context) (map[string]PerformanceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_name, average_confidence, success_rate, samples
		FROM agent_performance`)
	if err != nil {
		return nil, errors.NewPerformanceStoreFailedError("load", err)
	}
	defer rows.Close()

	out := map[string]PerformanceSnapshot{}
	for rows.Next() {
		var (
			name    string
			snap    PerformanceSnapshot
			rawJSON []byte
		)
		if err := rows.Scan(&name, &snap.AverageConfidence, &snap.SuccessRate, &rawJSON); err != nil {
			return nil, errors.NewPerformanceStoreFailedError("scan", err)
		}
		if err := json.Unmarshal(rawJSON, &snap.Samples); err != nil {
			return nil, errors.NewPerformanceStoreFailedError("decode samples", fmt.Errorf("agent %s: %w", name, err))
		}
		out[name] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPerformanceStoreFailedError("iterate", err)
	}
	return out, nil
}

func (s *PostgresPerformanceStore) Save(ctx context.Context, agent string, snap PerformanceSnapshot) error {
	samples, err := json.Marshal(snap.Samples)
	if err != nil {
		return errors.NewPerformanceStoreFailedError("encode samples", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_performance (agent_name, average_confidence, success_rate, samples, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (agent_name) DO UPDATE SET
			average_confidence = EXCLUDED.average_confidence,
			success_rate       = EXCLUDED.success_rate,
			samples            = EXCLUDED.samples,
			updated_at         = NOW()`,
		agent, snap.AverageConfidence, snap.SuccessRate, samples)
	if err != nil {
		return errors.NewPerformanceStoreFailedError("save", err)
	}
	return nil
}
