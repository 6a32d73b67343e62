package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/matchday-agent/internal/types"
)

// SaveOptions controls how SaveEnrichment treats an existing result
type SaveOptions struct {
	// PreserveDelivered keeps the existing delivered flag when replacing a result.
	// By default a replacement resets delivered to false so the new content is sent.
	PreserveDelivered bool
}

const enrichmentColumns = `id, event_external_id, predicted_outcome, human_summary, rationale,
	supporting_factors, confidence, raw_context, delivered, delivered_at, stale, created_at`

// SaveEnrichment inserts or replaces the result for an event, keyed by event external ID.
// Replacing clears the stale flag. The stored row ID is returned.
func (db *DB) SaveEnrichment(ctx context.Context, r *types.EnrichmentResult, opts SaveOptions) (int64, error) {
	factors, err := json.Marshal(r.SupportingFactors)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal supporting factors: %w", err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	onConflict := `ON CONFLICT (event_external_id) DO UPDATE SET
			predicted_outcome = excluded.predicted_outcome,
			human_summary = excluded.human_summary,
			rationale = excluded.rationale,
			supporting_factors = excluded.supporting_factors,
			confidence = excluded.confidence,
			raw_context = excluded.raw_context,
			stale = excluded.stale,
			created_at = excluded.created_at`
	if !opts.PreserveDelivered {
		onConflict += `,
			delivered = excluded.delivered,
			delivered_at = NULL`
	}

	var id int64
	err = db.queryRow(ctx, db.conn,
		`INSERT INTO enrichment_results
			(event_external_id, predicted_outcome, human_summary, rationale, supporting_factors,
			 confidence, raw_context, delivered, stale, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 `+onConflict+`
		 RETURNING id`,
		r.EventExternalID, string(r.PredictedOutcome), r.HumanSummary, r.Rationale, string(factors),
		string(r.Confidence), r.RawContext, false, false, toMillis(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, classify("save enrichment for "+r.EventExternalID, err)
	}
	return id, nil
}

// GetEnrichment retrieves the current result for an event
func (db *DB) GetEnrichment(ctx context.Context, externalID string) (*types.EnrichmentResult, error) {
	row := db.queryRow(ctx, db.conn,
		`SELECT `+enrichmentColumns+` FROM enrichment_results WHERE event_external_id = ?`,
		externalID,
	)
	r, err := scanEnrichment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get enrichment for %s: %w", externalID, err)
	}
	return r, nil
}

// MarkDelivered sets delivered=true for an event's result.
// It reports false when the result was already delivered or does not exist.
func (db *DB) MarkDelivered(ctx context.Context, externalID string) (bool, error) {
	res, err := db.exec(ctx, db.conn,
		`UPDATE enrichment_results SET delivered = ?, delivered_at = ?
		 WHERE event_external_id = ? AND delivered = ?`,
		true, toMillis(time.Now()), externalID, false,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s delivered: %w", externalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ResetDelivery clears the delivered flag for one event, or for every result when externalID is empty.
// It returns the number of results reset.
func (db *DB) ResetDelivery(ctx context.Context, externalID string) (int64, error) {
	query := `UPDATE enrichment_results SET delivered = ?, delivered_at = NULL WHERE delivered = ?`
	args := []any{false, true}
	if externalID != "" {
		query += ` AND event_external_id = ?`
		args = append(args, externalID)
	}

	res, err := db.exec(ctx, db.conn, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset delivery flags: %w", err)
	}
	return res.RowsAffected()
}

// MarkStale flags an event's result for regeneration.
// It reports false when the event has no result.
func (db *DB) MarkStale(ctx context.Context, externalID string) (bool, error) {
	res, err := db.exec(ctx, db.conn,
		`UPDATE enrichment_results SET stale = ? WHERE event_external_id = ?`,
		true, externalID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s stale: %w", externalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrichment(row rowScanner) (*types.EnrichmentResult, error) {
	var r types.EnrichmentResult
	var outcome, confidence, factors string
	var deliveredAt sql.NullInt64
	var createdAt int64

	if err := row.Scan(&r.ID, &r.EventExternalID, &outcome, &r.HumanSummary, &r.Rationale,
		&factors, &confidence, &r.RawContext, &r.Delivered, &deliveredAt, &r.Stale, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(factors), &r.SupportingFactors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal supporting factors: %w", err)
	}
	r.PredictedOutcome = types.Outcome(outcome)
	r.Confidence = types.Confidence(confidence)
	r.DeliveredAt = timePtr(deliveredAt)
	r.CreatedAt = fromMillis(createdAt)
	return &r, nil
}
