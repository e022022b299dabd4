// Package bog integrates the Bank of Georgia payment gateway.
package bog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Anri-17/bolt-generated-project/internal/payment"
)

// Config holds Bank of Georgia gateway settings.
type Config struct {
	BaseURL      string        `envconfig:"BOG_BASE_URL" default:"https://api.bog.ge"`
	APIKey       string        `envconfig:"BOG_API_KEY"`
	CallbackURL  string        `envconfig:"BOG_CALLBACK_URL"`
	Description  string        `envconfig:"BOG_DESCRIPTION" default:"ANSA E-commerce Purchase"`
	MerchantName string        `envconfig:"BOG_MERCHANT_NAME" default:"ANSA E-commerce"`
	Timeout      time.Duration `envconfig:"BOG_TIMEOUT" default:"30s"`
}

// Adapter is the Bank of Georgia implementation of payment.Adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewAdapter(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("bog: api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("bog: base url is required")
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (a *Adapter) Name() string { return "bog" }

type chargeRequest struct {
	Amount       string       `json:"amount"`
	Currency     string       `json:"currency"`
	Description  string       `json:"description"`
	CallbackURL  string       `json:"callback_url"`
	Destination  destination  `json:"destination"`
	MerchantData merchantData `json:"merchant_data"`
}

type destination struct {
	IBAN string `json:"iban"`
	Name string `json:"name"`
}

type merchantData struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id,omitempty"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Charge submits a payment to the gateway. Non-2xx responses surface the
// gateway's own message when it provides one.
func (a *Adapter) Charge(ctx context.Context, req *payment.Request) (*payment.Result, error) {
	name := req.DestinationName
	if name == "" {
		name = a.cfg.MerchantName
	}

	body := chargeRequest{
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: a.cfg.Description,
		CallbackURL: a.cfg.CallbackURL,
		Destination: destination{
			IBAN: req.DestinationIBAN,
			Name: name,
		},
		MerchantData: merchantData{
			OrderID:    req.OrderID,
			CustomerID: req.CustomerID,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("bog: encoding charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("bog: building charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("bog gateway unreachable", slog.String("error", err.Error()))
		return nil, payment.Unreachable("Bank of Georgia gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, payment.BadResponse("Bank of Georgia gateway returned an unreadable response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gatewayErr errorResponse
		_ = json.Unmarshal(raw, &gatewayErr)
		msg := gatewayErr.Message
		if msg == "" {
			msg = "BOG payment failed"
		}
		a.logger.Warn("bog payment rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("order_id", req.OrderID),
			slog.String("message", msg),
		)
		return nil, payment.Rejected(msg)
	}

	var ok chargeResponse
	if err := json.Unmarshal(raw, &ok); err != nil {
		return nil, payment.BadResponse("Bank of Georgia gateway returned an invalid response")
	}

	return &payment.Result{
		Reference: ok.TransactionID,
		Raw:       json.RawMessage(raw),
	}, nil
}
