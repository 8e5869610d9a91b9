package catalog

import (
	"fmt"
	"strings"

	"github.com/kalambet/stockwise/internal/textnorm"
)

// Record is one catalog entry: one product in one size. LowStock is
// computed by the data source; the search engine never derives it.
type Record struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Gender   string  `json:"gender,omitempty"`
	Size     string  `json:"size,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	LowStock bool    `json:"low_stock"`
	MinStock int     `json:"min_stock"`
}

// folded holds the normalized searchable fields of a Record.
type folded struct {
	name     string
	category string
	gender   string
}

func fold(r Record) folded {
	return folded{
		name:     textnorm.Normalize(r.Name),
		category: textnorm.Normalize(r.Category),
		gender:   textnorm.Normalize(r.Gender),
	}
}

func (f folded) fields() []string {
	return []string{f.name, f.category, f.gender}
}

// SizeLabel returns the size or a dash when the record has none.
func (r Record) SizeLabel() string {
	if strings.TrimSpace(r.Size) == "" {
		return "-"
	}
	return r.Size
}

// PriceLabel formats the unit price with two decimals.
func (r Record) PriceLabel() string {
	return fmt.Sprintf("$%.2f", r.Price)
}
