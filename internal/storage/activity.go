package storage

import (
	"context"
	"fmt"
	"time"

	"gamezone/internal/core"
)

// Activity is one journaled mutation.
type Activity struct {
	ID         int64
	EventID    string
	Entity     string
	Action     string
	EntityID   string
	Admin      string
	OccurredAt time.Time
	RecordedAt time.Time
}

// RecordActivity stores an event. Redelivered events are ignored, so the
// second return value is false when the event was already journaled.
func (d *DB) RecordActivity(ctx context.Context, ev core.MutationEvent) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO activity (event_id, entity, action, entity_id, admin, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		ev.ID, ev.Entity, ev.Action, ev.EntityID, ev.Admin, ev.Timestamp.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ListActivity returns the newest entries first.
func (d *DB) ListActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, event_id, entity, action, entity_id, admin, occurred_at, recorded_at
		 FROM activity ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var occurred, recorded int64
		if err := rows.Scan(&a.ID, &a.EventID, &a.Entity, &a.Action, &a.EntityID, &a.Admin, &occurred, &recorded); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.OccurredAt = time.UnixMilli(occurred).UTC()
		a.RecordedAt = time.UnixMilli(recorded).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
