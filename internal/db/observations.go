package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonathan/matchday-agent/internal/types"
)

// ObservationInput is one fixture sighting: its resolved period, the event and an odds snapshot.
// Snapshot is nil when the source quoted no prices for the event.
type ObservationInput struct {
	Period   types.Period
	Event    types.Event
	Snapshot *types.AttributeSnapshot
}

// ObservationResult reports what an IngestObservation call wrote
type ObservationResult struct {
	PeriodID     int64
	EventCreated bool
	SnapshotID   int64
}

// IngestObservation upserts the period and event and appends the snapshot in one transaction.
// Periods and events are insert-or-ignore on their natural keys, so the first write wins.
// The period's observed_event_count grows only when the event row is new.
func (db *DB) IngestObservation(ctx context.Context, in ObservationInput) (*ObservationResult, error) {
	var res ObservationResult

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		periodID, err := db.upsertPeriod(ctx, tx, in.Period)
		if err != nil {
			return err
		}
		res.PeriodID = periodID

		r, err := db.exec(ctx, tx,
			`INSERT INTO events (external_id, category, participant_a, participant_b, scheduled_time, period_id)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (external_id) DO NOTHING`,
			in.Event.ExternalID, in.Event.Category, in.Event.ParticipantA, in.Event.ParticipantB,
			toMillis(in.Event.ScheduledTime), periodID,
		)
		if err != nil {
			return classify("insert event "+in.Event.ExternalID, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 1 {
			res.EventCreated = true
			if _, err := db.exec(ctx, tx,
				`UPDATE periods SET observed_event_count = observed_event_count + 1 WHERE id = ?`,
				periodID,
			); err != nil {
				return classify("update period event count", err)
			}
		}

		s := in.Snapshot
		if s == nil {
			return nil
		}
		var draw sql.NullFloat64
		if s.PriceDraw != nil {
			draw = sql.NullFloat64{Float64: *s.PriceDraw, Valid: true}
		}
		err = db.queryRow(ctx, tx,
			`INSERT INTO odds_history (event_external_id, source_label, price_a, price_b, price_draw, observed_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			in.Event.ExternalID, s.SourceLabel, s.PriceA, s.PriceB, draw, toMillis(s.ObservedAt),
		).Scan(&res.SnapshotID)
		if err != nil {
			return classify("append odds snapshot", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (db *DB) upsertPeriod(ctx context.Context, tx *sql.Tx, p types.Period) (int64, error) {
	if _, err := db.exec(ctx, tx,
		`INSERT INTO periods (category, sequence_number, window_start, window_end)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (category, sequence_number) DO NOTHING`,
		p.Category, p.SequenceNumber, toMillis(p.WindowStart), toMillis(p.WindowEnd),
	); err != nil {
		return 0, classify("insert period", err)
	}

	var id int64
	if err := db.queryRow(ctx, tx,
		`SELECT id FROM periods WHERE category = ? AND sequence_number = ?`,
		p.Category, p.SequenceNumber,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to load period %s/%d: %w", p.Category, p.SequenceNumber, err)
	}
	return id, nil
}

// GetEvent retrieves an event by external ID
func (db *DB) GetEvent(ctx context.Context, externalID string) (*types.Event, error) {
	var e types.Event
	var scheduled int64
	err := db.queryRow(ctx, db.conn,
		`SELECT external_id, category, participant_a, participant_b, scheduled_time, period_id
		 FROM events WHERE external_id = ?`,
		externalID,
	).Scan(&e.ExternalID, &e.Category, &e.ParticipantA, &e.ParticipantB, &scheduled, &e.PeriodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", externalID, err)
	}
	e.ScheduledTime = fromMillis(scheduled)
	return &e, nil
}

// GetPeriod retrieves a period by ID
func (db *DB) GetPeriod(ctx context.Context, id int64) (*types.Period, error) {
	var p types.Period
	var start, end int64
	err := db.queryRow(ctx, db.conn,
		`SELECT id, category, sequence_number, window_start, window_end, observed_event_count
		 FROM periods WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Category, &p.SequenceNumber, &start, &end, &p.ObservedEventCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get period %d: %w", id, err)
	}
	p.WindowStart = fromMillis(start)
	p.WindowEnd = fromMillis(end)
	return &p, nil
}

// ListPeriods returns the periods of a category, newest first. An empty category lists all.
func (db *DB) ListPeriods(ctx context.Context, category string) ([]types.Period, error) {
	query := `SELECT id, category, sequence_number, window_start, window_end, observed_event_count FROM periods`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY window_start DESC, id DESC`

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var periods []types.Period
	for rows.Next() {
		var p types.Period
		var start, end int64
		if err := rows.Scan(&p.ID, &p.Category, &p.SequenceNumber, &start, &end, &p.ObservedEventCount); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		p.WindowStart = fromMillis(start)
		p.WindowEnd = fromMillis(end)
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// SnapshotHistory returns an event's odds snapshots, most recent first.
// A non-positive limit returns the full history.
func (db *DB) SnapshotHistory(ctx context.Context, externalID string, limit int) ([]types.AttributeSnapshot, error) {
	query := `SELECT id, event_external_id, source_label, price_a, price_b, price_draw, observed_at
		 FROM odds_history WHERE event_external_id = ?
		 ORDER BY observed_at DESC, id DESC`
	args := []any{externalID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query odds history: %w", err)
	}
	defer rows.Close()

	var snapshots []types.AttributeSnapshot
	for rows.Next() {
		var s types.AttributeSnapshot
		var draw sql.NullFloat64
		var observed int64
		if err := rows.Scan(&s.ID, &s.EventExternalID, &s.SourceLabel, &s.PriceA, &s.PriceB, &draw, &observed); err != nil {
			return nil, fmt.Errorf("failed to scan odds snapshot: %w", err)
		}
		if draw.Valid {
			v := draw.Float64
			s.PriceDraw = &v
		}
		s.ObservedAt = fromMillis(observed)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// CountEvents returns the number of stored events
func (db *DB) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := db.queryRow(ctx, db.conn, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
