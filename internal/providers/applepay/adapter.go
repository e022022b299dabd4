// Package applepay drives the Apple Pay payment sheet shown on the
// storefront client. The server side owns merchant validation and the
// outcome; presenting the sheet itself is delegated to a SheetDriver
// that bridges to the browser session.
package applepay

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

// Config holds Apple Pay merchant settings.
type Config struct {
	MerchantID    string        `envconfig:"APPLE_PAY_MERCHANT_ID"`
	Label         string        `envconfig:"APPLE_PAY_LABEL" default:"ANSA E-commerce"`
	CountryCode   string        `envconfig:"APPLE_PAY_COUNTRY" default:"GE"`
	Networks      []string      `envconfig:"APPLE_PAY_NETWORKS" default:"visa,masterCard"`
	ValidationURL string        `envconfig:"APPLE_PAY_VALIDATION_URL"`
	SheetTimeout  time.Duration `envconfig:"APPLE_PAY_SHEET_TIMEOUT" default:"2m"`
	HTTPTimeout   time.Duration `envconfig:"APPLE_PAY_HTTP_TIMEOUT" default:"10s"`
}

// SheetRequest describes the payment sheet to present.
type SheetRequest struct {
	MerchantID  string   `json:"merchant_id"`
	Label       string   `json:"label"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	CountryCode string   `json:"country_code"`
	Networks    []string `json:"networks"`
	OrderID     string   `json:"order_id"`
}

// Authorization is the token the sheet produces when the user approves.
type Authorization struct {
	TransactionID string          `json:"transaction_id"`
	PaymentData   json.RawMessage `json:"payment_data"`
}

// ValidateFunc resolves Apple's merchant validation round trip: it takes
// the validation URL the sheet produced and returns the merchant session
// payload to hand back to the sheet.
type ValidateFunc func(ctx context.Context, validationURL string) (json.RawMessage, error)

// SheetDriver presents the payment sheet on the client and blocks until
// the user authorizes, cancels, or the sheet fails. Implementations call
// validate mid-flow when the sheet requests merchant validation.
type SheetDriver interface {
	Available(ctx context.Context) bool
	Present(ctx context.Context, req *SheetRequest, validate ValidateFunc) (*Authorization, error)
}

// Adapter is the Apple Pay implementation of payment.Adapter.
type Adapter struct {
	cfg    Config
	driver SheetDriver
	client *http.Client
	logger *slog.Logger
}

func NewAdapter(cfg Config, driver SheetDriver, logger *slog.Logger) (*Adapter, error) {
	if driver == nil {
		return nil, errors.New("applepay: sheet driver is required")
	}
	if cfg.MerchantID == "" {
		return nil, errors.New("applepay: merchant id is required")
	}
	if cfg.ValidationURL == "" {
		return nil, errors.New("applepay: validation url is required")
	}
	return &Adapter{
		cfg:    cfg,
		driver: driver,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}, nil
}

// Unavailable returns an adapter that reports Apple Pay as unsupported.
// Used when the deployment has no client sheet bridge configured.
func Unavailable(logger *slog.Logger) *Adapter {
	return &Adapter{driver: unavailableDriver{}, logger: logger}
}

func (a *Adapter) Name() string { return "apple" }

func (a *Adapter) Charge(ctx context.Context, req *payment.Request) (*payment.Result, error) {
	if !a.driver.Available(ctx) {
		return nil, payment.NotSupported("Apple Pay")
	}

	if a.cfg.SheetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SheetTimeout)
		defer cancel()
	}

	auth, err := a.driver.Present(ctx, &SheetRequest{
		MerchantID:  a.cfg.MerchantID,
		Label:       a.cfg.Label,
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		CountryCode: a.cfg.CountryCode,
		Networks:    a.cfg.Networks,
		OrderID:     req.OrderID,
	}, a.validateMerchant)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(map[string]string{"transaction_id": auth.TransactionID})
	if err != nil {
		return nil, fmt.Errorf("applepay: encoding result: %w", err)
	}

	return &payment.Result{
		Reference:   auth.TransactionID,
		Destination: string(auth.PaymentData),
		Raw:         raw,
	}, nil
}

// validateMerchant exchanges the sheet's validation URL for a merchant
// session via the configured validation endpoint.
func (a *Adapter) validateMerchant(ctx context.Context, validationURL string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"validationURL": validationURL})
	if err != nil {
		return nil, fmt.Errorf("applepay: encoding validation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.ValidationURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("applepay: building validation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("apple pay merchant validation unreachable", slog.String("error", err.Error()))
		return nil, payment.Unreachable("Apple Pay merchant validation unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, payment.BadResponse("Apple Pay merchant validation returned an unreadable response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn("apple pay merchant validation rejected", slog.Int("status_code", resp.StatusCode))
		return nil, payment.Rejected("Apple Pay merchant validation failed")
	}
	return json.RawMessage(body), nil
}

type unavailableDriver struct{}

func (unavailableDriver) Available(context.Context) bool { return false }

func (unavailableDriver) Present(context.Context, *SheetRequest, ValidateFunc) (*Authorization, error) {
	return nil, payment.NotSupported("Apple Pay")
}
