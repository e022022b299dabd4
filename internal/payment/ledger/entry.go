// Package ledger is the append-only record of payment attempts. Entries
// are only ever inserted; reconciliation and reporting read them back.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Anri-17/bolt-generated-project/internal/common/money"
)

// Status of a recorded payment attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is one payment attempt. PaymentReference is nil for attempts
// that failed before the provider issued a transaction identifier.
type Entry struct {
	ID               string
	PaymentReference *string
	Amount           money.Money
	Method           string
	OrderID          string
	CustomerID       string
	Destination      string
	Status           Status
	ErrorDetail      string
	CreatedAt        time.Time
}

type entryJSON struct {
	ID               string  `json:"id"`
	PaymentReference *string `json:"payment_reference"`
	Amount           string  `json:"amount"`
	Currency         string  `json:"currency"`
	Method           string  `json:"method"`
	OrderID          string  `json:"order_id"`
	CustomerID       string  `json:"customer_id,omitempty"`
	Destination      string  `json:"destination,omitempty"`
	Status           Status  `json:"status"`
	ErrorDetail      string  `json:"error_detail,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// MarshalJSON renders the amount as a major-unit decimal string, matching
// the request wire format.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:               e.ID,
		PaymentReference: e.PaymentReference,
		Amount:           e.Amount.MajorString(),
		Currency:         string(e.Amount.Currency),
		Method:           e.Method,
		OrderID:          e.OrderID,
		CustomerID:       e.CustomerID,
		Destination:      e.Destination,
		Status:           e.Status,
		ErrorDetail:      e.ErrorDetail,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// SummaryRow aggregates attempts by method, status and currency.
type SummaryRow struct {
	Method     string         `json:"method"`
	Status     Status         `json:"status"`
	Currency   money.Currency `json:"currency"`
	Count      int64          `json:"count"`
	TotalMinor int64          `json:"total_minor"`
}

// Store persists and queries ledger entries.
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int64, error)
	Summary(ctx context.Context) ([]SummaryRow, error)
}
