// Package polish rewrites composed answers through a text-generation
// backend. Every failure degrades to returning the input unchanged.
package polish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/stockwise/internal/ollama"
	"github.com/kalambet/stockwise/internal/proxy"
)

const defaultTimeout = 8 * time.Second

// ErrUnknownModel is returned by a Backend when the model id is not served.
var ErrUnknownModel = errors.New("polish: unknown model")

// Polisher rewrites answer text. Implementations never fail: on any
// problem they return text unchanged.
type Polisher interface {
	Polish(ctx context.Context, text, hint string) string
}

// Backend performs one chat completion.
type Backend interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// Passthrough is a Polisher that returns its input.
type Passthrough struct{}

func (Passthrough) Polish(_ context.Context, text, _ string) string { return text }

// Client is the Polisher backed by a text-generation service.
type Client struct {
	backend       Backend
	model         string
	fallbackModel string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewClient creates a polishing Client. fallbackModel is tried once when
// the backend does not know model. timeout <= 0 uses 8s.
func NewClient(backend Backend, model, fallbackModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		backend:       backend,
		model:         model,
		fallbackModel: fallbackModel,
		timeout:       timeout,
		logger:        slog.Default(),
	}
}

// Polish returns the rewritten text, or text itself on any failure.
func (c *Client) Polish(ctx context.Context, text, hint string) (out string) {
	if strings.TrimSpace(text) == "" || c.backend == nil {
		return text
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("polish: backend panicked", "panic", r)
			out = text
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := BuildPrompt(text, hint)
	res, err := c.backend.Complete(ctx, c.model, messages)
	if errors.Is(err, ErrUnknownModel) && c.fallbackModel != "" && c.fallbackModel != c.model {
		c.logger.Warn("polish: model unknown, retrying with fallback", "model", c.model, "fallback", c.fallbackModel)
		res, err = c.backend.Complete(ctx, c.fallbackModel, messages)
	}
	if err != nil {
		c.logger.Warn("polish: degraded to passthrough", "reason", reason(err), "error", err)
		return text
	}

	res = strings.TrimSpace(res)
	if res == "" {
		c.logger.Warn("polish: empty completion, using original text")
		return text
	}
	return res
}

func reason(err error) string {
	switch {
	case proxy.IsAuth(err):
		return "auth"
	case proxy.IsRateLimit(err):
		return "rate_limit"
	case proxy.IsQuota(err):
		return "quota"
	case errors.Is(err, ErrUnknownModel):
		return "unknown_model"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network"
	}
}

// OpenRouter adapts a proxy.Client to Backend.
type OpenRouter struct {
	Client *proxy.Client
}

func (b OpenRouter) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	msgs := make([]proxy.Message, len(messages))
	for i, m := range messages {
		msgs[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	text, err := b.Client.Complete(ctx, model, msgs)
	if proxy.IsUnknownModel(err) {
		return "", fmt.Errorf("%w: %v", ErrUnknownModel, err)
	}
	return text, err
}

// Ollama adapts an ollama.Client to Backend.
type Ollama struct {
	Client *ollama.Client
}

func (b Ollama) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	text, err := b.Client.Chat(ctx, model, msgs)
	if errors.Is(err, ollama.ErrModelNotFound) {
		return "", fmt.Errorf("%w: %v", ErrUnknownModel, err)
	}
	return text, err
}
