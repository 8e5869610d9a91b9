package polish

import (
	"fmt"
	"strings"
)

const systemPrompt = `Eres el asistente de una tienda de ropa. Reescribe la respuesta que te paso para que suene natural y cercana, en español.

Reglas:
- No cambies cifras, nombres de productos, tallas, precios ni cantidades.
- No agregues productos, datos ni recomendaciones que no estén en el texto.
- Conserva los emojis de estado y las listas.
- Devuelve solo el texto reescrito, sin comentarios.`

// Hints passed to the polisher describing where the text came from.
const (
	HintInventory = "inventario"
	HintAnalytics = "analisis de ventas"
)

// Message is a backend-neutral chat message.
type Message struct {
	Role    string
	Content string
}

// BuildPrompt constructs the chat messages for one polish call.
func BuildPrompt(text, hint string) []Message {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if hint != "" {
		fmt.Fprintf(&sb, "\n\n[Contexto]\nLa respuesta trata sobre: %s.", hint)
	}
	return []Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: text},
	}
}
