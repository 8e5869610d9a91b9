// Package inventory answers stock, listing, price and product search
// questions over the catalog.
package inventory

import (
	"context"
	"log/slog"

	"github.com/kalambet/stockwise/internal/answer"
	"github.com/kalambet/stockwise/internal/catalog"
	"github.com/kalambet/stockwise/internal/intent"
	"github.com/kalambet/stockwise/internal/polish"
	"github.com/kalambet/stockwise/internal/textnorm"
)

// Source supplies the catalog. An error means the catalog is unavailable,
// which is distinct from an empty catalog.
type Source interface {
	ListProducts(ctx context.Context) ([]catalog.Record, error)
}

// Searcher is the staged catalog search.
type Searcher interface {
	Search(records []catalog.Record, terms catalog.TermSet) []catalog.Record
	SearchWithQuestion(records []catalog.Record, terms catalog.TermSet, question string) ([]catalog.Record, catalog.Stage)
}

// SubIntent is the branch an inventory question took.
type SubIntent string

const (
	SubLowStock SubIntent = "low_stock"
	SubListing  SubIntent = "listing"
	SubPrice    SubIntent = "price"
	SubSearch   SubIntent = "search"
)

// Handler answers inventory questions.
type Handler struct {
	source     Source
	search     Searcher
	polisher   polish.Polisher
	phrases    intent.InventoryPhrases
	minTermLen int
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithSearcher replaces the default catalog.Engine.
func WithSearcher(s Searcher) Option { return func(h *Handler) { h.search = s } }

// WithPhrases replaces the sub-intent phrase lists.
func WithPhrases(p intent.InventoryPhrases) Option { return func(h *Handler) { h.phrases = p } }

// WithMinTermLength sets the shortest usable price term.
func WithMinTermLength(n int) Option { return func(h *Handler) { h.minTermLen = n } }

// NewHandler creates a Handler. A nil polisher means passthrough.
func NewHandler(source Source, polisher polish.Polisher, opts ...Option) *Handler {
	if polisher == nil {
		polisher = polish.Passthrough{}
	}
	h := &Handler{
		source:     source,
		search:     catalog.NewEngine(),
		polisher:   polisher,
		phrases:    intent.DefaultVocabulary().Inventory,
		minTermLen: catalog.DefaultMinTermLength,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle loads the catalog and answers question. A catalog failure
// returns a single failure line without polishing.
func (h *Handler) Handle(ctx context.Context, question string) answer.Result {
	records, err := h.source.ListProducts(ctx)
	if err != nil {
		h.logger.Warn("inventory: catalog unavailable", "error", err)
		return answer.Result{Text: msgUnavailable, Raw: msgUnavailable, Failed: true}
	}
	return h.HandleCatalog(ctx, question, records)
}

// HandleCatalog answers question against an already loaded catalog.
func (h *Handler) HandleCatalog(ctx context.Context, question string, records []catalog.Record) answer.Result {
	raw, sub := h.compose(question, records)
	h.logger.Debug("inventory answered", "sub_intent", sub, "records", len(records))
	return answer.Result{
		Text:     h.polisher.Polish(ctx, raw, polish.HintInventory),
		Raw:      raw,
		LowStock: sub == SubLowStock && DetectLowStock(raw),
	}
}

// Classify returns the sub-intent for question. First match wins.
func (h *Handler) Classify(question string) SubIntent {
	q := textnorm.Normalize(question)
	switch {
	case h.phrases.LowStock.Match(q):
		return SubLowStock
	case h.phrases.Listing.Match(q):
		return SubListing
	case h.phrases.Price.Match(q):
		return SubPrice
	default:
		return SubSearch
	}
}

func (h *Handler) compose(question string, records []catalog.Record) (string, SubIntent) {
	sub := h.Classify(question)
	switch sub {
	case SubLowStock:
		low := catalog.LowStock(records)
		if len(low) == 0 {
			return AllSufficient, sub
		}
		return formatLowStock(low), sub
	case SubListing:
		if len(records) == 0 {
			return msgEmptyCatalog, sub
		}
		return formatListing(records), sub
	case SubPrice:
		return h.price(question, records), sub
	default:
		return h.general(question, records), sub
	}
}

func (h *Handler) price(question string, records []catalog.Record) string {
	terms, ok := catalog.PriceTerms(question, h.minTermLen)
	if !ok {
		return formatNeedDetail(catalog.Head(records, maxSuggestions))
	}
	matches := h.search.Search(records, terms)
	switch len(matches) {
	case 0:
		return h.noMatch(terms, records)
	case 1:
		return formatPrice(matches[0])
	default:
		return formatRecords(matches)
	}
}

func (h *Handler) general(question string, records []catalog.Record) string {
	if len(records) == 0 {
		return msgEmptyCatalog
	}
	terms := catalog.GeneralTerms(question)
	matches, _ := h.search.SearchWithQuestion(records, terms, question)
	if len(matches) == 0 {
		return h.noMatch(terms, records)
	}
	return formatRecords(matches)
}

func (h *Handler) noMatch(terms catalog.TermSet, records []catalog.Record) string {
	if terms.Empty() {
		return formatNoMatch("", nil, catalog.Head(records, maxSuggestions))
	}
	first := terms.Terms[0]
	return formatNoMatch(first, catalog.Suggest(records, first, maxSuggestions), catalog.Head(records, maxSuggestions))
}
