// Package tbc integrates the TBC Bank payment gateway.
package tbc

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

// Config holds TBC gateway settings.
type Config struct {
	BaseURL      string        `envconfig:"TBC_BASE_URL" default:"https://api.tbcbank.ge"`
	APIKey       string        `envconfig:"TBC_API_KEY"`
	ReturnURL    string        `envconfig:"TBC_RETURN_URL"`
	Description  string        `envconfig:"TBC_DESCRIPTION" default:"ANSA E-commerce Purchase"`
	MerchantName string        `envconfig:"TBC_MERCHANT_NAME" default:"ANSA E-commerce"`
	Timeout      time.Duration `envconfig:"TBC_TIMEOUT" default:"30s"`
}

// Adapter is the TBC implementation of payment.Adapter. TBC nests the
// destination like BOG but takes order and customer ids at the top level
// instead of a merchant_data object.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewAdapter(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tbc: api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("tbc: base url is required")
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (a *Adapter) Name() string { return "tbc" }

type chargeRequest struct {
	Amount      string      `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	ReturnURL   string      `json:"return_url"`
	Destination destination `json:"destination"`
	OrderID     string      `json:"order_id"`
	CustomerID  string      `json:"customer_id,omitempty"`
}

type destination struct {
	IBAN string `json:"iban"`
	Name string `json:"name"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (a *Adapter) Charge(ctx context.Context, req *payment.Request) (*payment.Result, error) {
	name := req.DestinationName
	if name == "" {
		name = a.cfg.MerchantName
	}

	payload, err := json.Marshal(chargeRequest{
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: a.cfg.Description,
		ReturnURL:   a.cfg.ReturnURL,
		Destination: destination{
			IBAN: req.DestinationIBAN,
			Name: name,
		},
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("tbc: encoding charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tbc: building charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("tbc gateway unreachable", slog.String("error", err.Error()))
		return nil, payment.Unreachable("TBC gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, payment.BadResponse("TBC gateway returned an unreadable response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gatewayErr errorResponse
		_ = json.Unmarshal(raw, &gatewayErr)
		msg := gatewayErr.Message
		if msg == "" {
			msg = "TBC payment failed"
		}
		a.logger.Warn("tbc payment rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("order_id", req.OrderID),
			slog.String("message", msg),
		)
		return nil, payment.Rejected(msg)
	}

	var ok chargeResponse
	if err := json.Unmarshal(raw, &ok); err != nil {
		return nil, payment.BadResponse("TBC gateway returned an invalid response")
	}

	return &payment.Result{
		Reference: ok.TransactionID,
		Raw:       json.RawMessage(raw),
	}, nil
}
