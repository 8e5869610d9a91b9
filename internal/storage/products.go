package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/stockwise/internal/catalog"
)

const productColumns = `id, name, category, gender, size, price, stock, min_stock, stock < min_stock`

// UpsertProduct inserts or replaces a product. An empty ID gets a new UUID;
// the stored ID is returned. LowStock on the input is ignored.
func (s *Store) UpsertProduct(ctx context.Context, p catalog.Record) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", fmt.Errorf("product name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, gender, size, price, stock, min_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, category = excluded.category, gender = excluded.gender,
			size = excluded.size, price = excluded.price, stock = excluded.stock,
			min_stock = excluded.min_stock, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Category, p.Gender, p.Size, p.Price, p.Stock, p.MinStock, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("upserting product %s: %w", p.ID, err)
	}
	return p.ID, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	r, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return catalog.Record{}, ErrNotFound
	}
	return r, err
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
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

// ListProducts returns the full catalog in insertion order with the
// low-stock flag derived from min_stock.
func (s *Store) ListProducts(ctx context.Context) ([]catalog.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Record
	for rows.Next() {
		r, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AdjustStock adds delta to a product's stock.
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?`,
		delta, s.timestamp(), id)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (catalog.Record, error) {
	var r catalog.Record
	err := sc.Scan(&r.ID, &r.Name, &r.Category, &r.Gender, &r.Size, &r.Price, &r.Stock, &r.MinStock, &r.LowStock)
	return r, err
}
