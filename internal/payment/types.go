// Package payment implements the storefront's multi-provider payment
// dispatch: a single entry point that validates a checkout payment, routes
// it to the selected provider adapter, and records every attempt in the
// payment ledger.
package payment

import (
	"context"
	"encoding/json"

	"github.com/Anri-17/bolt-generated-project/internal/common/money"
)

// Method identifies a payment method.
type Method string

const (
	MethodBOG    Method = "bog"    // Bank of Georgia gateway
	MethodTBC    Method = "tbc"    // TBC Bank gateway
	MethodApple  Method = "apple"  // Apple Pay sheet
	MethodGoogle Method = "google" // Google Pay / Payment Request
)

// ParseMethod parses a method code. The enumeration is closed.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodBOG, MethodTBC, MethodApple, MethodGoogle:
		return Method(s), true
	}
	return "", false
}

// IsBank reports whether the method is a bank gateway requiring a
// destination account.
func (m Method) IsBank() bool {
	return m == MethodBOG || m == MethodTBC
}

// Request is the input to a payment attempt.
type Request struct {
	Amount     string         // major-unit decimal string, e.g. "49.99"
	Currency   money.Currency // defaults to GEL when empty
	OrderID    string         // caller-supplied correlation key, one per checkout attempt
	CustomerID string         // optional
	Method     Method

	// Bank methods only.
	DestinationIBAN string
	DestinationName string
}

// Result is a provider adapter's success payload. Raw carries the
// provider's response verbatim; Reference is the provider transaction
// identifier the adapter extracted from it (the field name differs per
// provider and stays adapter-internal).
type Result struct {
	Reference   string
	Destination string // wallet token payload; empty for bank methods
	Raw         json.RawMessage
}

// OutcomeStatus discriminates a normalized payment outcome.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome is the normalized result returned to the caller. Process never
// fails with an unhandled error; every path resolves to one of these.
type Outcome struct {
	Status OutcomeStatus   `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Adapter translates a Request into one external payment provider's wire
// format and its response back into a Result, or fails with a
// ProviderError.
type Adapter interface {
	Name() string
	Charge(ctx context.Context, req *Request) (*Result, error)
}
