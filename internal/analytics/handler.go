// Package analytics answers sales questions: best sellers, revenue over a
// period and per-category totals.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kalambet/stockwise/internal/answer"
	"github.com/kalambet/stockwise/internal/intent"
	"github.com/kalambet/stockwise/internal/polish"
	"github.com/kalambet/stockwise/internal/storage"
	"github.com/kalambet/stockwise/internal/textnorm"
)

const (
	topN              = 5
	defaultPeriodDays = 30

	// Uncategorized labels sales whose product has no category.
	Uncategorized = "Sin categoría"

	// NoSales is returned by every report when there are no rows.
	NoSales = "📭 Aún no hay ventas registradas."

	msgUnavailable = "❌ No pude consultar las ventas en este momento. Intenta de nuevo más tarde."
	msgHelp        = "🤖 Puedo darte estadísticas de ventas. Prueba preguntando:\n" +
		"• ¿Cuáles son los productos más vendidos?\n" +
		"• ¿Cuánto vendimos este mes?\n" +
		"• ¿Cuál es el ticket promedio?\n" +
		"• Ventas por categoría"
)

// Source provides the read-only sales aggregates.
type Source interface {
	TopSellers(ctx context.Context, n int) ([]storage.TopSeller, error)
	SalesSince(ctx context.Context, since time.Time) ([]storage.SaleLine, error)
	CategoryTotals(ctx context.Context) ([]storage.CategoryTotal, error)
}

// SubIntent is the report an analytics question asked for.
type SubIntent string

const (
	SubTopSellers SubIntent = "top_sellers"
	SubCategories SubIntent = "categories"
	SubRevenue    SubIntent = "revenue"
	SubHelp       SubIntent = "help"
)

// Handler answers analytics questions.
type Handler struct {
	source     Source
	polisher   polish.Polisher
	phrases    intent.AnalyticsPhrases
	periodDays int
	now        func() time.Time
	logger     *slog.Logger
}

// NewHandler creates a Handler reporting revenue over the last periodDays
// (30 when <= 0). A nil polisher means passthrough.
func NewHandler(source Source, polisher polish.Polisher, phrases *intent.AnalyticsPhrases, periodDays int) *Handler {
	if polisher == nil {
		polisher = polish.Passthrough{}
	}
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}
	p := intent.DefaultVocabulary().Analytics
	if phrases != nil {
		p = *phrases
	}
	return &Handler{
		source:     source,
		polisher:   polisher,
		phrases:    p,
		periodDays: periodDays,
		now:        time.Now,
		logger:     slog.Default(),
	}
}

// Classify returns the report for question. Best sellers win over
// categories, and categories over revenue, so "ventas por categoria"
// gets the category breakdown.
func (h *Handler) Classify(question string) SubIntent {
	q := textnorm.Normalize(question)
	switch {
	case h.phrases.TopSellers.Match(q):
		return SubTopSellers
	case h.phrases.Categories.Match(q):
		return SubCategories
	case h.phrases.Revenue.Match(q):
		return SubRevenue
	default:
		return SubHelp
	}
}

// Handle answers question. A data-source error returns a single failure
// line without polishing.
func (h *Handler) Handle(ctx context.Context, question string) answer.Result {
	sub := h.Classify(question)

	var raw string
	var err error
	switch sub {
	case SubTopSellers:
		raw, err = h.topSellers(ctx)
	case SubCategories:
		raw, err = h.categories(ctx)
	case SubRevenue:
		raw, err = h.revenue(ctx)
	default:
		raw = msgHelp
	}
	if err != nil {
		h.logger.Warn("analytics: sales unavailable", "sub_intent", sub, "error", err)
		return answer.Result{Text: msgUnavailable, Raw: msgUnavailable, Failed: true}
	}

	return answer.Result{
		Text: h.polisher.Polish(ctx, raw, polish.HintAnalytics),
		Raw:  raw,
	}
}

func (h *Handler) topSellers(ctx context.Context) (string, error) {
	rows, err := h.source.TopSellers(ctx, topN)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return NoSales, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Top %d productos más vendidos:", len(rows))
	for i, r := range rows {
		fmt.Fprintf(&sb, "\n%d. %s: %d %s (%s)", i+1, r.Name, r.Units, units(r.Units), money(r.Revenue))
	}
	return sb.String(), nil
}

// Summary is the revenue report for a period.
type Summary struct {
	Orders     int
	Units      int
	Revenue    float64
	MeanTicket float64
}

// Summarize totals sale lines. Each line is one order; revenue uses the
// final price when present, otherwise list price minus discount.
func Summarize(lines []storage.SaleLine) Summary {
	var s Summary
	for _, l := range lines {
		s.Orders++
		s.Units += l.Quantity
		s.Revenue += l.Revenue()
	}
	if s.Orders > 0 {
		s.MeanTicket = s.Revenue / float64(s.Orders)
	}
	return s
}

func (h *Handler) revenue(ctx context.Context) (string, error) {
	since := h.now().AddDate(0, 0, -h.periodDays)
	lines, err := h.source.SalesSince(ctx, since)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return NoSales, nil
	}
	s := Summarize(lines)
	return fmt.Sprintf("💰 Ventas de los últimos %d días:\n• Ingresos: %s\n• Pedidos: %d (%d %s)\n• Ticket promedio: %s",
		h.periodDays, money(s.Revenue), s.Orders, s.Units, units(s.Units), money(s.MeanTicket)), nil
}

// CategoryRow is one line of the category breakdown.
type CategoryRow struct {
	Label   string
	Units   int
	Revenue float64
}

// GroupCategories merges totals by trimmed label, sending empty labels to
// Uncategorized, and sorts by revenue descending. Ties keep first-seen
// order.
func GroupCategories(totals []storage.CategoryTotal) []CategoryRow {
	index := map[string]int{}
	var rows []CategoryRow
	for _, t := range totals {
		label := strings.TrimSpace(t.Category)
		if label == "" {
			label = Uncategorized
		}
		i, ok := index[label]
		if !ok {
			i = len(rows)
			index[label] = i
			rows = append(rows, CategoryRow{Label: label})
		}
		rows[i].Units += t.Units
		rows[i].Revenue += t.Revenue
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})
	return rows
}

func (h *Handler) categories(ctx context.Context) (string, error) {
	totals, err := h.source.CategoryTotals(ctx)
	if err != nil {
		return "", err
	}
	rows := GroupCategories(totals)
	if len(rows) == 0 {
		return NoSales, nil
	}
	var sb strings.Builder
	sb.WriteString("📊 Ventas por categoría:")
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n• %s: %s (%d %s)", r.Label, money(r.Revenue), r.Units, units(r.Units))
	}
	return sb.String(), nil
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func units(n int) string {
	if n == 1 {
		return "unidad"
	}
	return "unidades"
}
