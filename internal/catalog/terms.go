package catalog

import (
	"github.com/kalambet/stockwise/internal/textnorm"
)

// Provenance tags where a TermSet came from.
type Provenance string

const (
	ProvenanceGeneral Provenance = "general"
	ProvenancePrice   Provenance = "price-query"
)

// DefaultMinTermLength is the shortest term kept unless short terms are allowed.
const DefaultMinTermLength = 2

// TermSet is an ordered list of normalized, non-empty search terms.
type TermSet struct {
	Terms      []string
	Provenance Provenance
}

// Empty reports whether the set carries no terms.
func (t TermSet) Empty() bool { return len(t.Terms) == 0 }

// priceStopWords are removed before a price lookup: price, cost and
// question words plus articles and fillers.
var priceStopWords = toSet(
	"precio", "precios", "cuanto", "cuantos", "cuanta", "cuantas", "cuesta", "cuestan",
	"vale", "valen", "costo", "costos", "coste", "valor", "price", "cost", "how", "much",
	"que", "cual", "cuales", "es", "son", "el", "la", "los", "las", "un", "una", "unos",
	"unas", "de", "del", "al", "a", "en", "por", "para", "con", "y", "o", "me", "mi",
	"tiene", "tienen", "tienes", "hay", "dime", "saber", "quiero", "favor", "the", "of",
	"is", "what",
)

// genericTokens never make a price query specific enough on their own.
var genericTokens = toSet(
	"x", "producto", "productos", "articulo", "articulos", "item", "items", "cosa",
	"cosas", "algo", "eso", "esto", "ese", "este",
)

// generalStopWords are dropped from free searches. Single characters are
// kept: short product codes are legitimate search terms.
var generalStopWords = toSet(
	"que", "cual", "cuales", "el", "la", "los", "las", "un", "una", "unos", "unas", "de",
	"del", "al", "en", "por", "para", "con", "y", "o", "me", "mi", "es", "son", "hay",
	"tienes", "tienen", "tiene", "teneis", "busco", "buscar", "quiero", "dame", "dime",
	"muestra", "muestrame", "ver", "mostrar", "stock", "inventario", "disponible",
	"disponibles", "producto", "productos", "favor", "hola", "cuanto", "cuantos", "cuantas",
	"queda", "quedan", "the", "a", "an", "do", "you", "have", "any", "show", "me",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// PriceTerms extracts the terms of a price question. ok is false when
// nothing specific survives filtering (no terms, only single characters,
// or only generic tokens); callers must not search in that case.
func PriceTerms(question string, minLen int) (TermSet, bool) {
	if minLen <= 0 {
		minLen = DefaultMinTermLength
	}
	set := TermSet{Provenance: ProvenancePrice}
	specific := false
	for _, w := range textnorm.Words(textnorm.Normalize(question)) {
		if _, stop := priceStopWords[w]; stop {
			continue
		}
		set.Terms = append(set.Terms, w)
		if _, generic := genericTokens[w]; !generic && len([]rune(w)) >= minLen {
			specific = true
		}
	}
	if !specific {
		return TermSet{Provenance: ProvenancePrice}, false
	}
	// Short leftovers are not usable as price terms.
	kept := set.Terms[:0]
	for _, w := range set.Terms {
		if len([]rune(w)) >= minLen {
			kept = append(kept, w)
		}
	}
	set.Terms = kept
	return set, true
}

// GeneralTerms extracts the terms of a free search question.
func GeneralTerms(question string) TermSet {
	set := TermSet{Provenance: ProvenanceGeneral}
	for _, w := range textnorm.Words(textnorm.Normalize(question)) {
		if _, stop := generalStopWords[w]; stop {
			continue
		}
		set.Terms = append(set.Terms, w)
	}
	return set
}
