// Package alert delivers low-stock notifications to an external webhook,
// either directly or through the SQLite job queue.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// KindStockAlert is the payload kind for low-stock reports.
const KindStockAlert = "stock_alert"

// Payload is the JSON body sent to the notifier.
type Payload struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStockAlert builds a stock_alert payload carrying the human-readable
// inventory text as its message.
func NewStockAlert(origin, message, detail string) Payload {
	return Payload{
		ID:        uuid.New().String(),
		Origin:    origin,
		Kind:      KindStockAlert,
		Message:   message,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}
