// Package answer holds the result type shared by the question handlers.
package answer

import "context"

// Result is a handler's reply. Text is what the user sees (possibly
// polished); Raw is the text before polishing.
type Result struct {
	Text string
	Raw  string
	// LowStock is set when Text is a low-stock report with at least one item.
	LowStock bool
	// Failed is set when the data source could not be reached.
	Failed bool
}

// Handler answers one domain of questions.
type Handler interface {
	Handle(ctx context.Context, question string) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, question string) Result

func (f HandlerFunc) Handle(ctx context.Context, question string) Result { return f(ctx, question) }
