// Package pipeline routes a free-text question to the inventory and
// analytics handlers, merges their answers and raises low-stock alerts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/stockwise/internal/alert"
	"github.com/kalambet/stockwise/internal/answer"
	"github.com/kalambet/stockwise/internal/intent"
)

const (
	// MsgInternalError is the answer when a handler panics.
	MsgInternalError = "❌ Ocurrió un error procesando tu consulta. Intenta reformularla."

	InventoryHeader = "📦 Inventario:"
	AnalyticsHeader = "📊 Ventas:"

	HandlerInventory = "inventory"
	HandlerAnalytics = "analytics"

	defaultAlertTimeout = 10 * time.Second
)

// ComposedAnswer is the merged reply for one question.
type ComposedAnswer struct {
	Text             string        `json:"answer"`
	Intent           intent.Intent `json:"intent"`
	Handlers         []string      `json:"handlers"`
	LowStockDetected bool          `json:"low_stock_detected"`
	// Degraded is set when every handler that ran failed to reach its data.
	Degraded bool `json:"degraded"`
}

// Router is the single error boundary for question answering. It keeps no
// per-request state; the zero value is not usable, use NewRouter.
type Router struct {
	classifier   *intent.Classifier
	inventory    answer.Handler
	analytics    answer.Handler
	dispatcher   alert.Dispatcher
	origin       string
	alertTimeout time.Duration
	logger       *slog.Logger

	alerts sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithDispatcher sends low-stock alerts through d, tagged with origin.
func WithDispatcher(d alert.Dispatcher, origin string) Option {
	return func(r *Router) {
		r.dispatcher = d
		r.origin = origin
	}
}

// WithAlertTimeout bounds each detached alert dispatch.
func WithAlertTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.alertTimeout = d
		}
	}
}

// NewRouter creates a Router. A nil classifier uses the default vocabulary.
func NewRouter(classifier *intent.Classifier, inventory, analytics answer.Handler, opts ...Option) *Router {
	if classifier == nil {
		classifier = intent.NewClassifier(nil)
	}
	r := &Router{
		classifier:   classifier,
		inventory:    inventory,
		analytics:    analytics,
		alertTimeout: defaultAlertTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer returns the text answer for question. It never fails.
func (r *Router) Answer(ctx context.Context, question string) string {
	return r.Compose(ctx, question).Text
}

// Compose classifies question, runs the matching handlers and merges
// their replies. Inventory-only and analytics-only questions run one
// handler; everything else runs both concurrently.
func (r *Router) Compose(ctx context.Context, question string) (out ComposedAnswer) {
	var c intent.Classification
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("router: recovered panic", "panic", p, "stack", string(debug.Stack()))
			out = ComposedAnswer{Text: MsgInternalError, Intent: c.Intent, Degraded: true}
		}
	}()

	c = r.classifier.Classify(question)
	out.Intent = c.Intent

	var inv, an *answer.Result
	var err error
	switch {
	case c.Combined():
		out.Handlers = []string{HandlerInventory, HandlerAnalytics}
		inv, an, err = r.fanOut(ctx, question)
	case c.Intent == intent.Inventory:
		out.Handlers = []string{HandlerInventory}
		inv, err = r.run(ctx, HandlerInventory, r.inventory, question)
	default:
		out.Handlers = []string{HandlerAnalytics}
		an, err = r.run(ctx, HandlerAnalytics, r.analytics, question)
	}
	if err != nil {
		r.logger.Error("router: handler failed", "intent", c.Intent, "error", err)
		return ComposedAnswer{Text: MsgInternalError, Intent: c.Intent, Handlers: out.Handlers, Degraded: true}
	}

	switch {
	case inv != nil && an != nil:
		out.Text = InventoryHeader + "\n" + inv.Text + "\n\n" + AnalyticsHeader + "\n" + an.Text
		out.Degraded = inv.Failed && an.Failed
	case inv != nil:
		out.Text = inv.Text
		out.Degraded = inv.Failed
	case an != nil:
		out.Text = an.Text
		out.Degraded = an.Failed
	}

	if inv != nil && inv.LowStock {
		out.LowStockDetected = true
		r.raiseAlert(ctx, inv.Raw, question)
	}

	r.logger.Debug("router answered",
		"intent", c.Intent,
		"promoted", c.Promoted,
		"handlers", out.Handlers,
		"low_stock", out.LowStockDetected,
	)
	return out
}

// fanOut runs both handlers concurrently and waits for both.
func (r *Router) fanOut(ctx context.Context, question string) (inv, an *answer.Result, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.run(gctx, HandlerInventory, r.inventory, question)
		inv = res
		return err
	})
	g.Go(func() error {
		res, err := r.run(gctx, HandlerAnalytics, r.analytics, question)
		an = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return inv, an, nil
}

// run calls h, turning a panic into an error.
func (r *Router) run(ctx context.Context, name string, h answer.Handler, question string) (res *answer.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("router: handler panicked", "handler", name, "panic", p, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("%s handler panicked: %v", name, p)
		}
	}()
	if h == nil {
		return nil, fmt.Errorf("%s handler not configured", name)
	}
	out := h.Handle(ctx, question)
	return &out, nil
}

// raiseAlert dispatches a stock_alert in the background. The answer never
// waits for it; Close does.
func (r *Router) raiseAlert(ctx context.Context, message, question string) {
	if r.dispatcher == nil {
		return
	}
	p := alert.NewStockAlert(r.origin, message, question)
	ctx = context.WithoutCancel(ctx)

	r.alerts.Add(1)
	go func() {
		defer r.alerts.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("router: alert dispatch panicked", "id", p.ID, "panic", rec)
			}
		}()
		ctx, cancel := context.WithTimeout(ctx, r.alertTimeout)
		defer cancel()
		r.dispatcher.Dispatch(ctx, p)
	}()
}

// Close waits for in-flight alert dispatches.
func (r *Router) Close() {
	r.alerts.Wait()
}
