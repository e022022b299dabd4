package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Anri-17/bolt-generated-project/internal/common/database"
	"github.com/Anri-17/bolt-generated-project/internal/common/events"
	"github.com/Anri-17/bolt-generated-project/internal/common/money"
	"github.com/Anri-17/bolt-generated-project/internal/payment/ledger"
)

type memStore struct {
	entries   []*ledger.Entry
	recordErr error
}

func (s *memStore) Record(_ context.Context, entry *ledger.Entry) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*ledger.Entry, error) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) ListByOrder(_ context.Context, orderID string) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) List(_ context.Context, _, _ int) ([]*ledger.Entry, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}

func (s *memStore) Summary(_ context.Context) ([]ledger.SummaryRow, error) {
	return nil, nil
}

type fakeAdapter struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Charge(_ context.Context, _ *Request) (*Result, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func newTestDispatcher(cfg Config, store ledger.Store, adapters map[Method]Adapter) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(cfg, adapters, store, nil, logger)
}

const testIBAN = "GE29NB0000000101904917"

func TestProcessUnknownMethod(t *testing.T) {
	store := &memStore{}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{})

	outcome := d.Process(context.Background(), &Request{
		Amount:  "49.99",
		OrderID: "ORD-1",
		Method:  Method("crypto"),
	})

	if outcome.Status != OutcomeError {
		t.Fatalf("expected error outcome, got %s", outcome.Status)
	}
	if outcome.Error != "Invalid payment method" {
		t.Errorf("unexpected error message: %q", outcome.Error)
	}
	if len(store.entries) != 0 {
		t.Errorf("unknown method must not be ledgered, got %d entries", len(store.entries))
	}
}

func TestProcessInvalidIBAN(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{name: "bog"}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "49.99",
		OrderID:         "ORD-1",
		Method:          MethodBOG,
		DestinationIBAN: "GE29NB00000001019",
	})

	if outcome.Status != OutcomeError || outcome.Error != "Invalid IBAN format" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if adapter.calls != 0 {
		t.Error("adapter must not be called for an invalid IBAN")
	}
	if len(store.entries) != 0 {
		t.Errorf("validation failure must not be ledgered by default, got %d entries", len(store.entries))
	}
}

func TestProcessInvalidIBANLedgered(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{name: "bog"}
	d := newTestDispatcher(Config{LedgerValidationFailures: true}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "49.99",
		OrderID:         "ORD-1",
		Method:          MethodBOG,
		DestinationIBAN: "not-an-iban",
	})

	if outcome.Status != OutcomeError {
		t.Fatalf("expected error outcome, got %s", outcome.Status)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.Status != ledger.StatusFailed {
		t.Errorf("expected failed status, got %s", entry.Status)
	}
	if entry.PaymentReference != nil {
		t.Error("validation failure must not carry a payment reference")
	}
	if entry.ErrorDetail != "Invalid IBAN format" {
		t.Errorf("unexpected error detail: %q", entry.ErrorDetail)
	}
}

func TestProcessInvalidAmount(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{name: "bog"}
	d := newTestDispatcher(Config{LedgerValidationFailures: true}, store, map[Method]Adapter{MethodBOG: adapter})

	for _, amount := range []string{"", "0", "-5.00", "abc", "49.999"} {
		outcome := d.Process(context.Background(), &Request{
			Amount:          amount,
			OrderID:         "ORD-1",
			Method:          MethodBOG,
			DestinationIBAN: testIBAN,
		})
		if outcome.Status != OutcomeError {
			t.Errorf("amount %q: expected error outcome, got %s", amount, outcome.Status)
		}
	}
	if adapter.calls != 0 {
		t.Error("adapter must not be called for an invalid amount")
	}
	if len(store.entries) != 0 {
		t.Errorf("amount rejections must not be ledgered, got %d entries", len(store.entries))
	}
}

func TestProcessBankSuccess(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{
		name: "bog",
		result: &Result{
			Reference: "TX1",
			Raw:       json.RawMessage(`{"transaction_id":"TX1"}`),
		},
	}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "49.99",
		OrderID:         "ORD-1",
		CustomerID:      "CUST-1",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})

	if outcome.Status != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Status, outcome.Error)
	}
	var data struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(outcome.Data, &data); err != nil {
		t.Fatalf("decoding outcome data: %v", err)
	}
	if data.TransactionID != "TX1" {
		t.Errorf("expected transaction_id TX1, got %q", data.TransactionID)
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.Status != ledger.StatusSuccess {
		t.Errorf("expected success status, got %s", entry.Status)
	}
	if entry.PaymentReference == nil || *entry.PaymentReference != "TX1" {
		t.Errorf("expected payment reference TX1, got %v", entry.PaymentReference)
	}
	if !entry.Amount.Equal(money.New(4999, money.GEL)) {
		t.Errorf("unexpected amount: %+v", entry.Amount)
	}
	if entry.Destination != testIBAN {
		t.Errorf("expected destination %s, got %s", testIBAN, entry.Destination)
	}
	if entry.ID == "" {
		t.Error("entry must carry a generated id")
	}
}

func TestProcessProviderFailure(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{name: "bog", err: Rejected("insufficient funds")}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "120.00",
		OrderID:         "ORD-2",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})

	if outcome.Status != OutcomeError {
		t.Fatalf("expected error outcome, got %s", outcome.Status)
	}
	if outcome.Error != "insufficient funds" {
		t.Errorf("provider message must pass through verbatim, got %q", outcome.Error)
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.Status != ledger.StatusFailed {
		t.Errorf("expected failed status, got %s", entry.Status)
	}
	if entry.PaymentReference != nil {
		t.Errorf("failed attempt must not carry a reference, got %v", *entry.PaymentReference)
	}
	if entry.ErrorDetail != "insufficient funds" {
		t.Errorf("unexpected error detail: %q", entry.ErrorDetail)
	}
}

func TestProcessWalletDestination(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{
		name: "apple",
		result: &Result{
			Reference:   "APPL-1",
			Destination: `{"data":"opaque-token"}`,
			Raw:         json.RawMessage(`{"transaction_id":"APPL-1"}`),
		},
	}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodApple: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:  "15.50",
		OrderID: "ORD-3",
		Method:  MethodApple,
	})

	if outcome.Status != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Status, outcome.Error)
	}
	if store.entries[0].Destination != `{"data":"opaque-token"}` {
		t.Errorf("wallet entries must record the token payload, got %q", store.entries[0].Destination)
	}
}

func TestProcessDuplicateOrder(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{
		name:   "tbc",
		result: &Result{Reference: "TBC-1", Raw: json.RawMessage(`{"transaction_id":"TBC-1"}`)},
	}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodTBC: adapter})

	req := &Request{
		Amount:          "10.00",
		OrderID:         "ORD-DUP",
		Method:          MethodTBC,
		DestinationIBAN: testIBAN,
	}
	d.Process(context.Background(), req)
	d.Process(context.Background(), req)

	// Retries are the caller's concern; the ledger keeps every attempt.
	if len(store.entries) != 2 {
		t.Fatalf("expected 2 ledger entries for a repeated order id, got %d", len(store.entries))
	}
	if store.entries[0].ID == store.entries[1].ID {
		t.Error("entries must have distinct ids")
	}
}

func TestProcessUnsupportedCurrency(t *testing.T) {
	store := &memStore{}
	adapter := &fakeAdapter{name: "bog"}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "49.99",
		Currency:        money.Currency("BTC"),
		OrderID:         "ORD-1",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})

	if outcome.Status != OutcomeError || outcome.Error != "Unsupported currency: BTC" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if adapter.calls != 0 || len(store.entries) != 0 {
		t.Error("unsupported currency must resolve before any adapter call or ledger write")
	}
}

type memPublisher struct {
	published []*events.Event
}

func (p *memPublisher) Publish(_ context.Context, event *events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func TestProcessPublishesEvents(t *testing.T) {
	store := &memStore{}
	publisher := &memPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := &fakeAdapter{
		name:   "bog",
		result: &Result{Reference: "TX1", Raw: json.RawMessage(`{"transaction_id":"TX1"}`)},
	}
	d := NewDispatcher(Config{}, map[Method]Adapter{MethodBOG: adapter}, store, publisher, logger)

	d.Process(context.Background(), &Request{
		Amount:          "49.99",
		OrderID:         "ORD-1",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})
	adapter.err = Rejected("insufficient funds")
	d.Process(context.Background(), &Request{
		Amount:          "120.00",
		OrderID:         "ORD-2",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})

	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(publisher.published))
	}

	succeeded := publisher.published[0]
	if succeeded.Type != events.EventPaymentSucceeded {
		t.Errorf("expected %s, got %s", events.EventPaymentSucceeded, succeeded.Type)
	}
	var okData events.PaymentSucceededData
	if err := succeeded.DecodeData(&okData); err != nil {
		t.Fatalf("decoding succeeded event: %v", err)
	}
	if okData.OrderID != "ORD-1" || okData.PaymentReference != "TX1" || okData.AmountMinor != 4999 {
		t.Errorf("unexpected succeeded event data: %+v", okData)
	}

	failed := publisher.published[1]
	if failed.Type != events.EventPaymentFailed {
		t.Errorf("expected %s, got %s", events.EventPaymentFailed, failed.Type)
	}
	var failData events.PaymentFailedData
	if err := failed.DecodeData(&failData); err != nil {
		t.Fatalf("decoding failed event: %v", err)
	}
	if failData.OrderID != "ORD-2" || failData.ErrorDetail != "insufficient funds" {
		t.Errorf("unexpected failed event data: %+v", failData)
	}
}

func TestProcessLedgerWriteFailure(t *testing.T) {
	store := &memStore{recordErr: errors.New("connection refused")}
	adapter := &fakeAdapter{
		name:   "bog",
		result: &Result{Reference: "TX9", Raw: json.RawMessage(`{"transaction_id":"TX9"}`)},
	}
	d := newTestDispatcher(Config{}, store, map[Method]Adapter{MethodBOG: adapter})

	outcome := d.Process(context.Background(), &Request{
		Amount:          "5.00",
		OrderID:         "ORD-4",
		Method:          MethodBOG,
		DestinationIBAN: testIBAN,
	})

	if outcome.Status != OutcomeSuccess {
		t.Fatalf("a ledger write failure must not fail a settled payment, got %s", outcome.Status)
	}
}
