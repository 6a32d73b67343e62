package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/matchday-agent/internal/types"
)

// InsertRunSummary appends the observability record for one run
func (db *DB) InsertRunSummary(ctx context.Context, s *types.RunSummary) error {
	periodIDs := s.PeriodIDs
	if periodIDs == nil {
		periodIDs = []int64{}
	}
	ids, err := json.Marshal(periodIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal period ids: %w", err)
	}

	_, err = db.exec(ctx, db.conn,
		`INSERT INTO run_summaries
			(run_id, status, events_processed, successes, failures, notifications_sent,
			 delivery_failures, external_calls, cache_hits, period_ids, error_message, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RunID.String(), s.Status, s.EventsProcessed, s.Successes, s.Failures, s.NotificationsSent,
		s.DeliveryFailures, s.ExternalCalls, s.CacheHits, string(ids), s.ErrorMessage,
		toMillis(s.StartedAt), s.Duration.Milliseconds(),
	)
	if err != nil {
		return classify("insert run summary", err)
	}
	return nil
}

// ListRunSummaries returns the most recent run summaries, newest first
func (db *DB) ListRunSummaries(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.query(ctx, db.conn,
		`SELECT run_id, status, events_processed, successes, failures, notifications_sent,
			delivery_failures, external_calls, cache_hits, period_ids, error_message, started_at, duration_ms
		 FROM run_summaries
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run summaries: %w", err)
	}
	defer rows.Close()

	var summaries []types.RunSummary
	for rows.Next() {
		var s types.RunSummary
		var runID, ids string
		var started, durationMs int64
		if err := rows.Scan(&runID, &s.Status, &s.EventsProcessed, &s.Successes, &s.Failures, &s.NotificationsSent,
			&s.DeliveryFailures, &s.ExternalCalls, &s.CacheHits, &ids, &s.ErrorMessage, &started, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		if s.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(ids), &s.PeriodIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal period ids: %w", err)
		}
		s.StartedAt = fromMillis(started)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
