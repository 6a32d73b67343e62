package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/matchday-agent/internal/types"
)

// PendingEnrichmentRows returns future events in open periods that have no result or a stale one.
// Rows are ordered newest period first, then by scheduled time and external ID within a period.
// An empty category matches every category.
func (db *DB) PendingEnrichmentRows(ctx context.Context, now time.Time, category string) ([]types.PendingEvent, error) {
	nowMs := toMillis(now)
	query := `SELECT p.id, p.category, p.sequence_number, p.window_start, p.window_end, p.observed_event_count,
			e.external_id, e.category, e.participant_a, e.participant_b, e.scheduled_time, e.period_id
		 FROM periods p
		 JOIN events e ON e.period_id = p.id
		 LEFT JOIN enrichment_results r ON r.event_external_id = e.external_id
		 WHERE p.window_end >= ?
		   AND e.scheduled_time > ?
		   AND (r.id IS NULL OR r.stale = ?)`
	args := []any{nowMs, nowMs, true}
	if category != "" {
		query += ` AND p.category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY p.window_start DESC, p.id DESC, e.scheduled_time ASC, e.external_id ASC`

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending enrichment: %w", err)
	}
	defer rows.Close()

	var pending []types.PendingEvent
	for rows.Next() {
		var pe types.PendingEvent
		var start, end, scheduled int64
		if err := rows.Scan(
			&pe.Period.ID, &pe.Period.Category, &pe.Period.SequenceNumber, &start, &end, &pe.Period.ObservedEventCount,
			&pe.Event.ExternalID, &pe.Event.Category, &pe.Event.ParticipantA, &pe.Event.ParticipantB, &scheduled, &pe.Event.PeriodID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending event: %w", err)
		}
		pe.Period.WindowStart = fromMillis(start)
		pe.Period.WindowEnd = fromMillis(end)
		pe.Event.ScheduledTime = fromMillis(scheduled)
		pending = append(pending, pe)
	}
	return pending, rows.Err()
}

// PendingDeliveryRows returns undelivered results joined to their event, by result ID.
// Stale rows are left out; only their replacement is delivered.
func (db *DB) PendingDeliveryRows(ctx context.Context) ([]types.Delivery, error) {
	rows, err := db.query(ctx, db.conn,
		`SELECT r.id, r.event_external_id, r.predicted_outcome, r.human_summary, r.rationale,
			r.supporting_factors, r.confidence, r.raw_context, r.delivered, r.delivered_at, r.stale, r.created_at,
			e.external_id, e.category, e.participant_a, e.participant_b, e.scheduled_time, e.period_id
		 FROM enrichment_results r
		 JOIN events e ON e.external_id = r.event_external_id
		 WHERE r.delivered = ? AND r.stale = ?
		 ORDER BY r.id ASC`,
		false, false,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending delivery: %w", err)
	}
	defer rows.Close()

	var deliveries []types.Delivery
	for rows.Next() {
		var d types.Delivery
		var scheduled int64
		sc := &deliveryScanner{rows: rows, extra: []any{
			&d.Event.ExternalID, &d.Event.Category, &d.Event.ParticipantA, &d.Event.ParticipantB, &scheduled, &d.Event.PeriodID,
		}}
		r, err := scanEnrichment(sc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending delivery: %w", err)
		}
		d.Result = *r
		d.Event.ScheduledTime = fromMillis(scheduled)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// deliveryScanner appends the joined event columns to an enrichment row scan
type deliveryScanner struct {
	rows  interface{ Scan(dest ...any) error }
	extra []any
}

func (s *deliveryScanner) Scan(dest ...any) error {
	return s.rows.Scan(append(dest, s.extra...)...)
}
