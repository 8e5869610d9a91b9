package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordSale stores a sale line and decrements the product's stock in the
// same transaction. The stored sale ID is returned. A sale larger than the
// stock on hand fails with ErrInsufficientStock and changes nothing.
func (s *Store) RecordSale(ctx context.Context, sale Sale) (string, error) {
	if sale.Quantity <= 0 {
		return "", fmt.Errorf("sale quantity must be positive, got %d", sale.Quantity)
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	soldAt := s.timestamp()
	if !sale.SoldAt.IsZero() {
		soldAt = sale.SoldAt.UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning sale transaction: %w", err)
	}
	defer tx.Rollback()

	var final sql.NullFloat64
	if sale.FinalPrice != nil {
		final = sql.NullFloat64{Float64: *sale.FinalPrice, Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - ?, updated_at = ?
		WHERE id = ? AND stock >= ?`,
		sale.Quantity, s.timestamp(), sale.ProductID, sale.Quantity)
	if err != nil {
		return "", fmt.Errorf("updating stock: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, sale.ProductID).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("product %s: %w", sale.ProductID, ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("reading stock: %w", err)
		}
		return "", fmt.Errorf("product %s has %d, sale needs %d: %w",
			sale.ProductID, stock, sale.Quantity, ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, quantity, list_price, discount, final_price, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ProductID, sale.Quantity, sale.ListPrice, sale.Discount, final, soldAt,
	); err != nil {
		return "", fmt.Errorf("inserting sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing sale: %w", err)
	}
	return sale.ID, nil
}

// TopSellers returns up to n products ordered by units sold.
func (s *Store) TopSellers(ctx context.Context, n int) ([]TopSeller, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, category, units, revenue
		FROM top_sellers ORDER BY units DESC, revenue DESC, product_name ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying top sellers: %w", err)
	}
	defer rows.Close()

	var out []TopSeller
	for rows.Next() {
		var t TopSeller
		if err := rows.Scan(&t.ProductID, &t.Name, &t.Category, &t.Units, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SalesSince returns the raw sale lines sold at or after since, oldest first.
func (s *Store) SalesSince(ctx context.Context, since time.Time) ([]SaleLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, category, quantity, list_price, discount, final_price, sold_at
		FROM sales_lines WHERE sold_at >= ? ORDER BY sold_at ASC, id ASC`,
		since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying sales: %w", err)
	}
	defer rows.Close()

	var out []SaleLine
	for rows.Next() {
		var l SaleLine
		var final sql.NullFloat64
		var soldAt string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Category, &l.Quantity,
			&l.ListPrice, &l.Discount, &final, &soldAt); err != nil {
			return nil, err
		}
		if final.Valid {
			v := final.Float64
			l.FinalPrice = &v
		}
		if l.SoldAt, err = parseTime("sold_at", soldAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CategoryTotals returns units and revenue per raw category label.
func (s *Store) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, units, revenue FROM category_totals`)
	if err != nil {
		return nil, fmt.Errorf("querying category totals: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Units, &c.Revenue); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
