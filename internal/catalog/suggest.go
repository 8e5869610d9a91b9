package catalog

import (
	"strings"

	"github.com/kalambet/stockwise/internal/textnorm"
)

// Suggest returns up to limit records whose folded name starts with or
// contains the first three characters of term.
func Suggest(records []Record, term string, limit int) []Record {
	prefix := []rune(textnorm.Normalize(term))
	if len(prefix) == 0 || limit <= 0 {
		return nil
	}
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	p := string(prefix)

	var out []Record
	for _, r := range records {
		name := textnorm.Normalize(r.Name)
		if strings.HasPrefix(name, p) || strings.Contains(name, p) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Head returns at most n records from the front of records.
func Head(records []Record, n int) []Record {
	if n < 0 {
		n = 0
	}
	if len(records) <= n {
		return records
	}
	return records[:n]
}

// LowStock returns the records flagged as low on stock, in catalog order.
func LowStock(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.LowStock {
			out = append(out, r)
		}
	}
	return out
}
