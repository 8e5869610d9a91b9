package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func (s *Store) SaveInteraction(ctx context.Context, i Interaction) error {
	handlers, err := json.Marshal(i.Handlers)
	if err != nil {
		return fmt.Errorf("encoding handlers: %w", err)
	}
	if i.Handlers == nil {
		handlers = []byte("[]")
	}
	created := i.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, created_at, question, answer, intent, handlers, low_stock, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, created.UTC().Format(time.RFC3339), i.Question, i.Answer, i.Intent,
		string(handlers), i.LowStock, i.Degraded,
	)
	return err
}

const interactionColumns = `id, created_at, question, answer, intent, handlers, low_stock, degraded`

func (s *Store) GetInteraction(ctx context.Context, id string) (Interaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interactionColumns+` FROM interactions WHERE id = ?`, id)
	i, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

// RecentInteractions returns up to limit interactions, newest first.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+interactionColumns+`
		FROM interactions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanInteraction(sc scanner) (Interaction, error) {
	var i Interaction
	var created, handlers string
	if err := sc.Scan(&i.ID, &created, &i.Question, &i.Answer, &i.Intent, &handlers, &i.LowStock, &i.Degraded); err != nil {
		return Interaction{}, err
	}
	t, err := parseTime("created_at", created)
	if err != nil {
		return Interaction{}, err
	}
	i.CreatedAt = t
	if err := json.Unmarshal([]byte(handlers), &i.Handlers); err != nil {
		return Interaction{}, fmt.Errorf("decoding handlers: %w", err)
	}
	return i, nil
}
