package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalambet/stockwise/internal/storage"
)

// Dispatcher hands a payload off for delivery. Failures are logged, never
// returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload)
}

// AlertStore records alert outcomes.
type AlertStore interface {
	RecordAlert(ctx context.Context, a storage.Alert) error
	SetAlertStatus(ctx context.Context, id, status string) error
}

// DirectDispatcher notifies synchronously and records the outcome.
type DirectDispatcher struct {
	notifier Notifier
	store    AlertStore
	logger   *slog.Logger
}

// NewDirectDispatcher creates a DirectDispatcher. store may be nil.
func NewDirectDispatcher(n Notifier, store AlertStore) *DirectDispatcher {
	return &DirectDispatcher{notifier: n, store: store, logger: slog.Default()}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, p Payload) {
	status := storage.AlertFailed
	if d.notifier.Notify(ctx, p) {
		status = storage.AlertDelivered
	} else {
		d.logger.Warn("alert not delivered", "id", p.ID, "kind", p.Kind)
	}
	if d.store == nil {
		return
	}
	a := toRecord(p)
	a.Status = status
	if err := d.store.RecordAlert(ctx, a); err != nil {
		d.logger.Warn("recording alert", "id", p.ID, "error", err)
	}
}

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(ctx context.Context, job storage.Job) error
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
}

// QueueStore is the storage needed by queued delivery.
type QueueStore interface {
	JobStore
	AlertStore
}

// QueueDispatcher persists the payload as a stock_alert job for Worker.
type QueueDispatcher struct {
	store       QueueStore
	maxAttempts int
	logger      *slog.Logger
}

// NewQueueDispatcher creates a QueueDispatcher. maxAttempts <= 0 uses 5.
func NewQueueDispatcher(store QueueStore, maxAttempts int) *QueueDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &QueueDispatcher{store: store, maxAttempts: maxAttempts, logger: slog.Default()}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, p Payload) {
	if err := d.enqueue(ctx, p); err != nil {
		d.logger.Warn("queueing alert", "id", p.ID, "error", err)
	}
}

func (d *QueueDispatcher) enqueue(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	a := toRecord(p)
	a.Status = storage.AlertQueued
	if err := d.store.RecordAlert(ctx, a); err != nil {
		return fmt.Errorf("recording alert: %w", err)
	}
	return d.store.EnqueueJob(ctx, storage.Job{
		ID:          p.ID,
		Type:        KindStockAlert,
		PayloadJSON: string(body),
		MaxAttempts: d.maxAttempts,
	})
}

func toRecord(p Payload) storage.Alert {
	return storage.Alert{
		ID:        p.ID,
		Origin:    p.Origin,
		Kind:      p.Kind,
		Message:   p.Message,
		Detail:    p.Detail,
		CreatedAt: p.Timestamp,
	}
}
