package bog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Anri-17/bolt-generated-project/internal/common/money"
	"github.com/Anri-17/bolt-generated-project/internal/payment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		CallbackURL:  "https://shop.example/api/bog-callback",
		Description:  "ANSA E-commerce Purchase",
		MerchantName: "ANSA E-commerce",
		Timeout:      5 * time.Second,
	}
}

func TestNewAdapterRequiresAPIKey(t *testing.T) {
	if _, err := NewAdapter(Config{BaseURL: "https://api.bog.ge"}, testLogger()); err == nil {
		t.Fatal("expected an error for a missing api key")
	}
}

func TestChargeSuccess(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payment" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transaction_id":"TX1","redirect_url":"https://pay.bog.ge/TX1"}`))
	}))
	defer server.Close()

	adapter, err := NewAdapter(testConfig(server.URL), testLogger())
	if err != nil {
		t.Fatalf("building adapter: %v", err)
	}

	result, err := adapter.Charge(context.Background(), &payment.Request{
		Amount:          "49.99",
		Currency:        money.GEL,
		OrderID:         "ORD-1",
		CustomerID:      "CUST-1",
		Method:          payment.MethodBOG,
		DestinationIBAN: "GE29NB0000000101904917",
	})
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}

	if result.Reference != "TX1" {
		t.Errorf("expected reference TX1, got %q", result.Reference)
	}
	var raw map[string]any
	if err := json.Unmarshal(result.Raw, &raw); err != nil {
		t.Fatalf("decoding raw result: %v", err)
	}
	if raw["redirect_url"] != "https://pay.bog.ge/TX1" {
		t.Error("raw result must carry the gateway response verbatim")
	}

	if captured["amount"] != "49.99" {
		t.Errorf("expected amount 49.99, got %v", captured["amount"])
	}
	if captured["currency"] != "GEL" {
		t.Errorf("expected currency GEL, got %v", captured["currency"])
	}
	if captured["description"] != "ANSA E-commerce Purchase" {
		t.Errorf("unexpected description: %v", captured["description"])
	}
	if captured["callback_url"] != "https://shop.example/api/bog-callback" {
		t.Errorf("unexpected callback_url: %v", captured["callback_url"])
	}
	dest, _ := captured["destination"].(map[string]any)
	if dest["iban"] != "GE29NB0000000101904917" || dest["name"] != "ANSA E-commerce" {
		t.Errorf("unexpected destination: %v", dest)
	}
	merchant, _ := captured["merchant_data"].(map[string]any)
	if merchant["order_id"] != "ORD-1" || merchant["customer_id"] != "CUST-1" {
		t.Errorf("unexpected merchant_data: %v", merchant)
	}
}

func TestChargeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message":"insufficient funds"}`))
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testConfig(server.URL), testLogger())
	_, err := adapter.Charge(context.Background(), &payment.Request{
		Amount:          "120.00",
		Currency:        money.GEL,
		OrderID:         "ORD-2",
		Method:          payment.MethodBOG,
		DestinationIBAN: "GE29NB0000000101904917",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "insufficient funds" {
		t.Errorf("gateway message must pass through verbatim, got %q", err.Error())
	}
	pe, ok := payment.AsProviderError(err)
	if !ok || pe.Code != payment.CodeRejected {
		t.Errorf("expected a rejected provider error, got %#v", err)
	}
}

func TestChargeRejectedWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testConfig(server.URL), testLogger())
	_, err := adapter.Charge(context.Background(), &payment.Request{
		Amount:          "10.00",
		Currency:        money.GEL,
		OrderID:         "ORD-3",
		Method:          payment.MethodBOG,
		DestinationIBAN: "GE29NB0000000101904917",
	})
	if err == nil || err.Error() != "BOG payment failed" {
		t.Errorf("expected the generic failure message, got %v", err)
	}
}

func TestChargeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // force a connection error

	adapter, _ := NewAdapter(testConfig(server.URL), testLogger())
	_, err := adapter.Charge(context.Background(), &payment.Request{
		Amount:          "10.00",
		Currency:        money.GEL,
		OrderID:         "ORD-4",
		Method:          payment.MethodBOG,
		DestinationIBAN: "GE29NB0000000101904917",
	})
	pe, ok := payment.AsProviderError(err)
	if !ok || pe.Code != payment.CodeUnreachable {
		t.Errorf("expected an unreachable provider error, got %v", err)
	}
}

func TestChargeInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	adapter, _ := NewAdapter(testConfig(server.URL), testLogger())
	_, err := adapter.Charge(context.Background(), &payment.Request{
		Amount:          "10.00",
		Currency:        money.GEL,
		OrderID:         "ORD-5",
		Method:          payment.MethodBOG,
		DestinationIBAN: "GE29NB0000000101904917",
	})
	pe, ok := payment.AsProviderError(err)
	if !ok || pe.Code != payment.CodeBadResponse {
		t.Errorf("expected a bad-response provider error, got %v", err)
	}
}
