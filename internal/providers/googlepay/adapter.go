// Package googlepay drives the Google Pay payment sheet on the
// storefront client. Unlike Apple Pay there is no server-side merchant
// validation: the sheet resolves in a single present/authorize exchange.
package googlepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Anri-17/bolt-generated-project/internal/payment"
)

// Config holds Google Pay merchant settings.
type Config struct {
	MerchantID   string        `envconfig:"GOOGLE_PAY_MERCHANT_ID"`
	MerchantName string        `envconfig:"GOOGLE_PAY_MERCHANT_NAME" default:"ANSA E-commerce"`
	Gateway      string        `envconfig:"GOOGLE_PAY_GATEWAY" default:"example"`
	Networks     []string      `envconfig:"GOOGLE_PAY_NETWORKS" default:"VISA,MASTERCARD"`
	SheetTimeout time.Duration `envconfig:"GOOGLE_PAY_SHEET_TIMEOUT" default:"2m"`
}

// SheetRequest describes the payment sheet to present.
type SheetRequest struct {
	MerchantID   string   `json:"merchant_id"`
	MerchantName string   `json:"merchant_name"`
	Gateway      string   `json:"gateway"`
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
	Networks     []string `json:"networks"`
	OrderID      string   `json:"order_id"`
}

// Authorization is the payment token the sheet produces.
type Authorization struct {
	PaymentToken string          `json:"payment_token"`
	MethodData   json.RawMessage `json:"method_data"`
}

// SheetDriver presents the sheet on the client and blocks until the user
// authorizes, cancels, or the sheet fails.
type SheetDriver interface {
	Available(ctx context.Context) bool
	Present(ctx context.Context, req *SheetRequest) (*Authorization, error)
}

// Adapter is the Google Pay implementation of payment.Adapter.
type Adapter struct {
	cfg    Config
	driver SheetDriver
	logger *slog.Logger
}

func NewAdapter(cfg Config, driver SheetDriver, logger *slog.Logger) (*Adapter, error) {
	if driver == nil {
		return nil, errors.New("googlepay: sheet driver is required")
	}
	if cfg.MerchantID == "" {
		return nil, errors.New("googlepay: merchant id is required")
	}
	return &Adapter{cfg: cfg, driver: driver, logger: logger}, nil
}

// Unavailable returns an adapter that reports Google Pay as unsupported.
func Unavailable(logger *slog.Logger) *Adapter {
	return &Adapter{driver: unavailableDriver{}, logger: logger}
}

func (a *Adapter) Name() string { return "google" }

func (a *Adapter) Charge(ctx context.Context, req *payment.Request) (*payment.Result, error) {
	if !a.driver.Available(ctx) {
		return nil, payment.NotSupported("Google Pay")
	}

	if a.cfg.SheetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SheetTimeout)
		defer cancel()
	}

	auth, err := a.driver.Present(ctx, &SheetRequest{
		MerchantID:   a.cfg.MerchantID,
		MerchantName: a.cfg.MerchantName,
		Gateway:      a.cfg.Gateway,
		Amount:       req.Amount,
		Currency:     string(req.Currency),
		Networks:     a.cfg.Networks,
		OrderID:      req.OrderID,
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(map[string]string{"payment_token": auth.PaymentToken})
	if err != nil {
		return nil, fmt.Errorf("googlepay: encoding result: %w", err)
	}

	return &payment.Result{
		Reference:   auth.PaymentToken,
		Destination: string(auth.MethodData),
		Raw:         raw,
	}, nil
}

type unavailableDriver struct{}

func (unavailableDriver) Available(context.Context) bool { return false }

func (unavailableDriver) Present(context.Context, *SheetRequest) (*Authorization, error) {
	return nil, payment.NotSupported("Google Pay")
}
