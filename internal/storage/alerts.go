package storage

import (
	"context"
	"fmt"
	"time"
)

// RecordAlert stores an alert. An empty Status is stored as queued.
func (s *Store) RecordAlert(ctx context.Context, a Alert) error {
	status := a.Status
	if status == "" {
		status = AlertQueued
	}
	now := s.timestamp()
	created := now
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, origin, kind, message, detail, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Origin, a.Kind, a.Message, a.Detail, status, created, now,
	)
	if err != nil {
		return fmt.Errorf("recording alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) SetAlertStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`, status, s.timestamp(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, origin, kind, message, detail, status, created_at, updated_at
		FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var created, updated string
		if err := rows.Scan(&a.ID, &a.Origin, &a.Kind, &a.Message, &a.Detail, &a.Status, &created, &updated); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime("created_at", created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime("updated_at", updated); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
