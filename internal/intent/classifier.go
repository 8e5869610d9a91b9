// Package intent classifies a free-text store question into the
// inventory and analytics domains using an editable keyword vocabulary.
package intent

import (
	"github.com/kalambet/stockwise/internal/textnorm"
)

// Intent is the routing decision for one question.
type Intent int

const (
	Unclassified Intent = iota
	Inventory
	Analytics
	Both
)

func (i Intent) String() string {
	switch i {
	case Inventory:
		return "inventory"
	case Analytics:
		return "analytics"
	case Both:
		return "both"
	default:
		return "unclassified"
	}
}

// MarshalText renders the intent by name.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Classification is the outcome of classifying one question.
type Classification struct {
	Intent     Intent
	Normalized string
	// Promoted is set when a co-occurrence rule forced the combined path.
	Promoted bool
	Matched  []string
}

// Combined reports whether both handlers must run.
func (c Classification) Combined() bool {
	return c.Intent == Both || c.Intent == Unclassified
}

// Classifier is a rule-based multi-label classifier over two keyword sets.
type Classifier struct {
	vocab *Vocabulary
}

// NewClassifier creates a Classifier. A nil vocabulary uses the default.
func NewClassifier(v *Vocabulary) *Classifier {
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Classifier{vocab: v}
}

// Vocabulary returns the vocabulary the classifier was built with.
func (c *Classifier) Vocabulary() *Vocabulary {
	return c.vocab
}

// Classify scans the normalized question against both domains and the
// promotion rules.
func (c *Classifier) Classify(question string) Classification {
	q := textnorm.Normalize(question)
	out := Classification{Normalized: q}
	if q == "" {
		return out
	}

	inv, invOK := c.vocab.Domains.Inventory.First(q)
	ana, anaOK := c.vocab.Domains.Analytics.First(q)
	if invOK {
		out.Matched = append(out.Matched, inv)
	}
	if anaOK {
		out.Matched = append(out.Matched, ana)
	}

	for _, rule := range c.vocab.Promotions {
		if allPresent(q, rule) {
			out.Promoted = true
			out.Matched = append(out.Matched, rule...)
			break
		}
	}

	switch {
	case out.Promoted, invOK && anaOK:
		out.Intent = Both
	case invOK:
		out.Intent = Inventory
	case anaOK:
		out.Intent = Analytics
	default:
		out.Intent = Unclassified
	}
	return out
}

func allPresent(q string, rule Phrases) bool {
	for _, kw := range rule {
		if !(Phrases{kw}).Match(q) {
			return false
		}
	}
	return true
}
