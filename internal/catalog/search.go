// Package catalog implements the staged fuzzy search over an in-memory
// product catalog and the term extraction that feeds it.
package catalog

import (
	"strings"

	"github.com/kalambet/stockwise/internal/textnorm"
)

// Stage identifies which fallback level produced a result set.
type Stage int

const (
	StageNone Stage = iota
	StageDirect
	StagePlural
	StageWord
	StageSingleTerm
	StageQuestion
)

func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StagePlural:
		return "plural"
	case StageWord:
		return "word"
	case StageSingleTerm:
		return "single-term"
	case StageQuestion:
		return "question"
	default:
		return "none"
	}
}

// Engine runs the staged catalog search. The zero value is ready to use
// and holds no state; an Engine is safe for concurrent use.
type Engine struct{}

// NewEngine returns a search Engine.
func NewEngine() *Engine { return &Engine{} }

// Search returns the records matched by the first stage (direct, plural,
// per-word, single-term) that yields anything. Records keep catalog order.
// An empty term set returns nil without running any stage.
func (e *Engine) Search(records []Record, terms TermSet) []Record {
	out, _ := e.SearchStaged(records, terms)
	return out
}

// SearchStaged is Search that also reports the stage that matched.
func (e *Engine) SearchStaged(records []Record, terms TermSet) ([]Record, Stage) {
	if terms.Empty() || len(records) == 0 {
		return nil, StageNone
	}
	folds := foldAll(records)

	if out, stage := runStages(records, folds, terms.Terms); len(out) > 0 {
		return out, stage
	}
	if len(terms.Terms) > 1 {
		for _, t := range terms.Terms {
			if out, _ := runStages(records, folds, []string{t}); len(out) > 0 {
				return out, StageSingleTerm
			}
		}
	}
	return nil, StageNone
}

// SearchWithQuestion runs Search and, when it finds nothing, falls back to
// matching the whole folded question as one substring.
func (e *Engine) SearchWithQuestion(records []Record, terms TermSet, question string) ([]Record, Stage) {
	if out, stage := e.SearchStaged(records, terms); len(out) > 0 {
		return out, stage
	}
	if out := e.MatchQuestion(records, question); len(out) > 0 {
		return out, StageQuestion
	}
	return nil, StageNone
}

// MatchQuestion folds the entire question and returns the records whose
// name, category or segment contains it.
func (e *Engine) MatchQuestion(records []Record, question string) []Record {
	q := textnorm.Normalize(question)
	if q == "" {
		return nil
	}
	var out []Record
	for i, f := range foldAll(records) {
		if containsAny(f.fields(), q) {
			out = append(out, records[i])
		}
	}
	return out
}

func foldAll(records []Record) []folded {
	folds := make([]folded, len(records))
	for i, r := range records {
		folds[i] = fold(r)
	}
	return folds
}

func runStages(records []Record, folds []folded, terms []string) ([]Record, Stage) {
	norm := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = textnorm.Normalize(t); t != "" {
			norm = append(norm, t)
		}
	}
	if len(norm) == 0 {
		return nil, StageNone
	}
	stages := []struct {
		stage Stage
		match func(folded, []string) bool
	}{
		{StageDirect, matchDirect},
		{StagePlural, matchPlural},
		{StageWord, matchWord},
	}
	for _, s := range stages {
		var out []Record
		for i, f := range folds {
			if s.match(f, norm) {
				out = append(out, records[i])
			}
		}
		if len(out) > 0 {
			return out, s.stage
		}
	}
	return nil, StageNone
}

// matchDirect: any term is a substring of name, category or segment.
func matchDirect(f folded, terms []string) bool {
	for _, t := range terms {
		if containsAny(f.fields(), t) {
			return true
		}
	}
	return false
}

// matchPlural compares plural-stripped forms in both directions.
func matchPlural(f folded, terms []string) bool {
	for _, t := range terms {
		st := textnorm.StripPlural(t)
		if st == "" {
			continue
		}
		for _, field := range f.fields() {
			if field == "" {
				continue
			}
			sf := textnorm.StripPlural(field)
			if sf == "" {
				continue
			}
			if strings.Contains(sf, st) || strings.Contains(st, sf) {
				return true
			}
		}
	}
	return false
}

// matchWord compares each word of the name against each term, both ways.
func matchWord(f folded, terms []string) bool {
	for _, w := range strings.Fields(f.name) {
		for _, t := range terms {
			if strings.Contains(t, w) || strings.Contains(w, t) {
				return true
			}
		}
	}
	return false
}

func containsAny(fields []string, term string) bool {
	for _, field := range fields {
		if field != "" && strings.Contains(field, term) {
			return true
		}
	}
	return false
}
