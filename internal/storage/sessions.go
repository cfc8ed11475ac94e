package storage

import (
	"context"
	"fmt"
	"time"
)

// LoadSession returns the unexpired values stored for a browser session.
func (d *DB) LoadSession(ctx context.Context, id string) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT key, value FROM session_values WHERE session_id = ? AND expires_at > ?`,
		id, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("query session values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan session value: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// SaveSession replaces every value of a session in one transaction.
func (d *DB) SaveSession(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear session values: %w", err)
	}

	now := time.Now()
	expires := now.Add(ttl).Unix()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_values (session_id, key, value, expires_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, k, v, expires, now.Unix()); err != nil {
			return fmt.Errorf("insert session value %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// DeleteSession removes all values of a session.
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions drops expired rows and reports how many went.
func (d *DB) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM session_values WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
