package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Anri-17/bolt-generated-project/internal/common/events"
	"github.com/Anri-17/bolt-generated-project/internal/common/money"
	"github.com/Anri-17/bolt-generated-project/internal/payment/ledger"
)

// Config controls dispatcher behavior.
type Config struct {
	// LedgerValidationFailures records attempts rejected on account
	// validation (malformed IBAN) as failed ledger entries. Off by
	// default: validation rejections never reach a provider.
	LedgerValidationFailures bool `envconfig:"LEDGER_VALIDATION_FAILURES" default:"false"`
}

// Dispatcher routes payment requests to provider adapters and records
// every resolved attempt in the ledger. The method-to-adapter mapping is
// fixed at construction.
type Dispatcher struct {
	cfg       Config
	adapters  map[Method]Adapter
	ledger    ledger.Store
	publisher events.EventPublisher
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher over a fixed adapter registry.
// publisher may be nil; lifecycle events are then skipped.
func NewDispatcher(cfg Config, adapters map[Method]Adapter, store ledger.Store, publisher events.EventPublisher, logger *slog.Logger) *Dispatcher {
	registry := make(map[Method]Adapter, len(adapters))
	for m, a := range adapters {
		registry[m] = a
	}
	return &Dispatcher{
		cfg:       cfg,
		adapters:  registry,
		ledger:    store,
		publisher: publisher,
		logger:    logger,
	}
}

// Process runs one payment attempt end to end. It never returns a Go
// error: every path, including provider failures and internal faults,
// resolves to a normalized Outcome. A failed charge is recorded in the
// ledger before the error outcome is returned; a failed ledger write
// after a successful charge is logged but does not fail the payment.
func (d *Dispatcher) Process(ctx context.Context, req *Request) *Outcome {
	adapter, ok := d.adapters[req.Method]
	if !ok {
		// Unknown method: no provider was chosen, nothing to ledger.
		return &Outcome{Status: OutcomeError, Error: "Invalid payment method"}
	}

	currency := req.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	if !money.IsSupported(currency) {
		return &Outcome{Status: OutcomeError, Error: "Unsupported currency: " + string(currency)}
	}

	amount, err := money.ParseMajor(req.Amount, currency)
	if err != nil {
		return &Outcome{Status: OutcomeError, Error: "Invalid amount: " + err.Error()}
	}

	if req.Method.IsBank() && !ValidIBAN(req.DestinationIBAN) {
		if d.cfg.LedgerValidationFailures {
			d.record(ctx, req, amount, nil, req.DestinationIBAN, ledger.StatusFailed, "Invalid IBAN format")
		}
		return &Outcome{Status: OutcomeError, Error: "Invalid IBAN format"}
	}

	normalized := *req
	normalized.Currency = currency

	log := d.logger.With(
		slog.String("method", string(req.Method)),
		slog.String("order_id", req.OrderID),
		slog.String("amount", amount.MajorString()),
		slog.String("currency", string(currency)),
	)

	result, err := adapter.Charge(ctx, &normalized)
	if err != nil {
		detail := err.Error()
		log.Warn("payment failed", slog.String("error", detail))
		d.record(ctx, req, amount, nil, req.DestinationIBAN, ledger.StatusFailed, detail)
		d.publishFailed(ctx, req, amount, detail)
		return &Outcome{Status: OutcomeError, Error: detail}
	}

	destination := req.DestinationIBAN
	if !req.Method.IsBank() {
		destination = result.Destination
	}

	log.Info("payment succeeded", slog.String("payment_reference", result.Reference))
	d.record(ctx, req, amount, refPtr(result.Reference), destination, ledger.StatusSuccess, "")
	d.publishSucceeded(ctx, req, amount, result.Reference)

	return &Outcome{Status: OutcomeSuccess, Data: result.Raw}
}

func (d *Dispatcher) record(ctx context.Context, req *Request, amount money.Money, reference *string, destination string, status ledger.Status, detail string) {
	entry := &ledger.Entry{
		ID:               ulid.Make().String(),
		PaymentReference: reference,
		Amount:           amount,
		Method:           string(req.Method),
		OrderID:          req.OrderID,
		CustomerID:       req.CustomerID,
		Destination:      destination,
		Status:           status,
		ErrorDetail:      detail,
		CreatedAt:        time.Now().UTC(),
	}
	if err := d.ledger.Record(ctx, entry); err != nil {
		// The charge already resolved; losing the ledger row must not
		// change the caller-visible outcome.
		d.logger.Error("failed to record payment entry",
			slog.String("order_id", req.OrderID),
			slog.String("method", string(req.Method)),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Dispatcher) publishSucceeded(ctx context.Context, req *Request, amount money.Money, reference string) {
	if d.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.EventPaymentSucceeded, "payment", req.OrderID, events.PaymentSucceededData{
		OrderID:          req.OrderID,
		Method:           string(req.Method),
		AmountMinor:      amount.AmountMinor,
		Currency:         string(amount.Currency),
		PaymentReference: reference,
	})
	if err == nil {
		err = d.publisher.Publish(ctx, event)
	}
	if err != nil {
		d.logger.Error("failed to publish payment.succeeded event",
			slog.String("order_id", req.OrderID), slog.String("error", err.Error()))
	}
}

func (d *Dispatcher) publishFailed(ctx context.Context, req *Request, amount money.Money, detail string) {
	if d.publisher == nil {
		return
	}
	event, err := events.NewEvent(events.EventPaymentFailed, "payment", req.OrderID, events.PaymentFailedData{
		OrderID:     req.OrderID,
		Method:      string(req.Method),
		AmountMinor: amount.AmountMinor,
		Currency:    string(amount.Currency),
		ErrorDetail: detail,
	})
	if err == nil {
		err = d.publisher.Publish(ctx, event)
	}
	if err != nil {
		d.logger.Error("failed to publish payment.failed event",
			slog.String("order_id", req.OrderID), slog.String("error", err.Error()))
	}
}

func refPtr(reference string) *string {
	if reference == "" {
		return nil
	}
	return &reference
}
