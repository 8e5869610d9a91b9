package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock is returned when a sale exceeds the stock on hand.
var ErrInsufficientStock = errors.New("insufficient stock")

// Sale is one sold order line. Revenue is FinalPrice when set, otherwise
// ListPrice minus Discount.
type Sale struct {
	ID         string
	ProductID  string
	Quantity   int
	ListPrice  float64
	Discount   float64
	FinalPrice *float64
	SoldAt     time.Time
}

// SaleLine is a row of the sales_lines view.
type SaleLine struct {
	Sale
	ProductName string
	Category    string
}

// Revenue returns the amount actually charged for the line.
func (l SaleLine) Revenue() float64 {
	if l.FinalPrice != nil {
		return *l.FinalPrice
	}
	return l.ListPrice - l.Discount
}

type TopSeller struct {
	ProductID string
	Name      string
	Category  string
	Units     int
	Revenue   float64
}

type CategoryTotal struct {
	Category string // empty when the product has none
	Units    int
	Revenue  float64
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// Alert statuses.
const (
	AlertQueued    = "queued"
	AlertDelivered = "delivered"
	AlertFailed    = "failed"
)

type Alert struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Interaction struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Intent    string    `json:"intent"`
	Handlers  []string  `json:"handlers"`
	LowStock  bool      `json:"low_stock"`
	Degraded  bool      `json:"degraded"`
}
