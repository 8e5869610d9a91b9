package inventory

import (
	"fmt"
	"strings"

	"github.com/kalambet/stockwise/internal/catalog"
)

// Fixed texts. LowStockHeader and AllSufficient are also what the alert
// trigger looks for.
const (
	LowStockHeader = "⚠️ Productos con stock bajo"
	AllSufficient  = "✅ Todos los productos tienen stock suficiente."
	LowStockMarker = "🔻 Bajo mínimo"

	msgUnavailable  = "❌ No pude consultar el inventario en este momento. Intenta de nuevo más tarde."
	msgEmptyCatalog = "📭 El catálogo está vacío: todavía no hay productos cargados."
	msgNeedDetail   = "🔎 Necesito que me digas qué producto te interesa para darte el precio."
	msgExamplesHead = "Por ejemplo:"
	msgSuggestHead  = "¿Quizás buscabas?"
	msgAvailHead    = "Algunos productos disponibles:"
)

const (
	maxListed      = 10
	maxSuggestions = 5
)

// DetectLowStock reports whether text is a low-stock report that lists at
// least one product: the header is present and the all-sufficient line is
// not.
func DetectLowStock(text string) bool {
	return strings.Contains(text, LowStockHeader) && !strings.Contains(text, AllSufficient)
}

func formatLowStock(records []catalog.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d):", LowStockHeader, len(records))
	for _, r := range records {
		fmt.Fprintf(&sb, "\n• %s (talla %s): %d %s", r.Name, r.SizeLabel(), r.Stock, units(r.Stock))
		if r.MinStock > 0 {
			fmt.Fprintf(&sb, ", mínimo %d", r.MinStock)
		}
	}
	return sb.String()
}

func formatListing(records []catalog.Record) string {
	low := len(catalog.LowStock(records))
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 Inventario: %d productos en total, %d bajo el mínimo.", len(records), low)
	for _, r := range catalog.Head(records, maxListed) {
		fmt.Fprintf(&sb, "\n• %s (talla %s): %d %s, %s", r.Name, r.SizeLabel(), r.Stock, units(r.Stock), r.PriceLabel())
	}
	writeMore(&sb, len(records))
	return sb.String()
}

func formatRecords(records []catalog.Record) string {
	var sb strings.Builder
	if len(records) == 1 {
		sb.WriteString("Encontré 1 producto:")
	} else {
		fmt.Fprintf(&sb, "Encontré %d productos:", len(records))
	}
	for _, r := range catalog.Head(records, maxListed) {
		sb.WriteString("\n")
		sb.WriteString(formatRecord(r))
	}
	writeMore(&sb, len(records))
	return sb.String()
}

func formatRecord(r catalog.Record) string {
	parts := []string{
		"• " + r.Name,
		"Talla: " + r.SizeLabel(),
		fmt.Sprintf("Stock: %d", r.Stock),
		"Precio: " + r.PriceLabel(),
	}
	if r.Category != "" {
		parts = append(parts, "Categoría: "+r.Category)
	}
	if r.Gender != "" {
		parts = append(parts, "Género: "+r.Gender)
	}
	line := strings.Join(parts, " | ")
	if r.LowStock {
		line += " " + LowStockMarker
	}
	return line
}

func formatPrice(r catalog.Record) string {
	availability := fmt.Sprintf("%d unidades disponibles", r.Stock)
	if r.Stock == 1 {
		availability = "1 unidad disponible"
	}
	if r.Stock <= 0 {
		availability = "agotado por ahora"
	}
	return fmt.Sprintf("💲 %s (talla %s) cuesta %s. Stock: %s.", r.Name, r.SizeLabel(), r.PriceLabel(), availability)
}

func formatNeedDetail(examples []catalog.Record) string {
	if len(examples) == 0 {
		return msgNeedDetail
	}
	var sb strings.Builder
	sb.WriteString(msgNeedDetail)
	sb.WriteString("\n")
	sb.WriteString(msgExamplesHead)
	writeNames(&sb, examples)
	return sb.String()
}

func formatNoMatch(term string, suggestions, examples []catalog.Record) string {
	var sb strings.Builder
	if term == "" {
		sb.WriteString("🤔 No encontré productos que coincidan con tu consulta.")
	} else {
		fmt.Fprintf(&sb, "🤔 No encontré productos para %q.", term)
	}
	switch {
	case len(suggestions) > 0:
		sb.WriteString("\n")
		sb.WriteString(msgSuggestHead)
		writeNames(&sb, suggestions)
	case len(examples) > 0:
		sb.WriteString("\n")
		sb.WriteString(msgAvailHead)
		writeNames(&sb, examples)
	}
	return sb.String()
}

func writeNames(sb *strings.Builder, records []catalog.Record) {
	for _, r := range records {
		fmt.Fprintf(sb, "\n• %s (talla %s) %s", r.Name, r.SizeLabel(), r.PriceLabel())
	}
}

func writeMore(sb *strings.Builder, total int) {
	if total > maxListed {
		fmt.Fprintf(sb, "\n+%d más", total-maxListed)
	}
}

func units(n int) string {
	if n == 1 {
		return "unidad"
	}
	return "unidades"
}
