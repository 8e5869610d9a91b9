package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/stockwise/internal/textnorm"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Phrases is a list of normalized keywords or phrases.
type Phrases []string

// Match reports whether any phrase occurs in the normalized question q
// starting at a word boundary.
func (p Phrases) Match(q string) bool {
	_, ok := p.First(q)
	return ok
}

// First returns the first phrase found in q. A phrase must start a word
// but may end mid-word, so "venta" matches "ventas" and not "inventario".
func (p Phrases) First(q string) (string, bool) {
	for _, phrase := range p {
		if phrase != "" && containsAtWordStart(q, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func containsAtWordStart(q, phrase string) bool {
	for offset := 0; ; {
		i := strings.Index(q[offset:], phrase)
		if i < 0 {
			return false
		}
		i += offset
		if i == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(q[:i])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		offset = i + 1
	}
}

// InventoryPhrases drive the inventory handler's sub-intent decision.
type InventoryPhrases struct {
	LowStock Phrases `yaml:"low_stock"`
	Listing  Phrases `yaml:"listing"`
	Price    Phrases `yaml:"price"`
}

// AnalyticsPhrases drive the analytics handler's sub-intent decision.
type AnalyticsPhrases struct {
	TopSellers Phrases `yaml:"top_sellers"`
	Categories Phrases `yaml:"categories"`
	Revenue    Phrases `yaml:"revenue"`
}

// Vocabulary is the editable keyword configuration of the router.
type Vocabulary struct {
	Domains struct {
		Inventory Phrases `yaml:"inventory"`
		Analytics Phrases `yaml:"analytics"`
	} `yaml:"domains"`
	Promotions []Phrases        `yaml:"promotions"`
	Inventory  InventoryPhrases `yaml:"inventory"`
	Analytics  AnalyticsPhrases `yaml:"analytics"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a vocabulary file. An empty path yields the default.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes YAML, normalizes every entry and validates the result.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing vocabulary: %w", err)
	}
	lists := []*Phrases{
		&v.Domains.Inventory, &v.Domains.Analytics,
		&v.Inventory.LowStock, &v.Inventory.Listing, &v.Inventory.Price,
		&v.Analytics.TopSellers, &v.Analytics.Categories, &v.Analytics.Revenue,
	}
	for i := range v.Promotions {
		lists = append(lists, &v.Promotions[i])
	}
	for _, l := range lists {
		*l = normalizePhrases(*l)
	}

	if len(v.Domains.Inventory) == 0 || len(v.Domains.Analytics) == 0 {
		return nil, fmt.Errorf("vocabulary: both inventory and analytics domains need keywords")
	}
	for i, rule := range v.Promotions {
		if len(rule) < 2 {
			return nil, fmt.Errorf("vocabulary: promotion rule %d needs at least two keywords", i)
		}
	}
	return &v, nil
}

func normalizePhrases(in Phrases) Phrases {
	out := make(Phrases, 0, len(in))
	for _, p := range in {
		if p = textnorm.Normalize(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
