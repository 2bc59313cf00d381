package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/concierge-labs/member-qa/pkg/postgres"
	"github.com/concierge-labs/member-qa/pkg/resilience"
)

// Snapshot SQL. The schema is one JSONB row per capture:
//
//	CREATE TABLE qa_stats_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
const (
	insertSnapshot  = `INSERT INTO qa_stats_snapshots (data, captured_at) VALUES ($1, $2)`
	selectSnapshots = `SELECT data FROM qa_stats_snapshots ORDER BY captured_at DESC LIMIT $1`
)

// Store persists aggregated statistics snapshots in PostgreSQL so stats
// survive restarts and keep a history.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot persists one capture of the aggregated stats, retrying
// transient failures.
func (s *Store) SaveSnapshot(ctx context.Context, stats AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	err = resilience.Retry(ctx, "snapshot-save", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		_, execErr := s.db.DB.ExecContext(ctx, insertSnapshot, data, time.Now().UTC())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("saving stats snapshot: %w", err)
	}

	s.logger.Info("stats snapshot saved", "total_questions", stats.TotalQuestions)
	return nil
}

// LatestSnapshot returns the most recent capture, or nil, nil when the
// table is empty.
func (s *Store) LatestSnapshot(ctx context.Context) (*AggregatedStats, error) {
	snapshots, err := s.ListSnapshots(ctx, 1)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}
	return &snapshots[0], nil
}

// ListSnapshots returns up to limit captures, newest first. Rows that no
// longer unmarshal are skipped with a warning.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.db.DB.QueryContext(ctx, selectSnapshots, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave captures agg's stats every interval and once more on
// shutdown.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *Aggregator, interval time.Duration) {
	go s.saveLoop(ctx, agg, interval)
	s.logger.Info("periodic snapshot started", "interval", interval)
}

func (s *Store) saveLoop(ctx context.Context, agg *Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.SaveSnapshot(final, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
