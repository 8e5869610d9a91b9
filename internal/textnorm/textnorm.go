// Package textnorm folds free text into the comparable form used by the
// classifier and the catalog search: lower case, no diacritics, no
// question marks.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = runes.Remove(runes.In(unicode.Mn))

var questionMarks = strings.NewReplacer("¿", "", "?", "")

// Normalize lower-cases s, strips combining marks after canonical
// decomposition, removes '¿' and '?' and trims surrounding whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// A fresh chain per call: transform.Chain keeps internal state.
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(questionMarks.Replace(folded))
}

// StripPlural drops a trailing "es", or else a trailing "s". It is a
// heuristic, not a stemmer: "mes" becomes "m" and "lapiz" is left alone.
func StripPlural(s string) string {
	switch {
	case strings.HasSuffix(s, "es"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s"):
		return s[:len(s)-1]
	default:
		return s
	}
}

// Words splits a normalized string on whitespace and trims punctuation
// from each word, dropping words that become empty.
func Words(s string) []string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
