package applepay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"

	"github.com/Anri-17/bolt-generated-project/internal/payment"
)

// NATS subjects for the storefront sheet bridge. The web client keeps a
// subscriber on these via the gateway and answers for its own session.
const (
	subjectCapability = "wallet.apple.capability"
	subjectPresent    = "wallet.apple.present"
	subjectComplete   = "wallet.apple.complete"
)

const capabilityTimeout = 3 * time.Second

// SheetRelay is the production SheetDriver. It relays the sheet flow to
// the storefront client over NATS request/reply: present the sheet, run
// merchant validation when the client asks for it, then collect the
// authorization.
type SheetRelay struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewSheetRelay(nc *nats.Conn, logger *slog.Logger) *SheetRelay {
	return &SheetRelay{nc: nc, logger: logger}
}

type capabilityReply struct {
	Supported bool `json:"supported"`
}

type presentRequest struct {
	SessionID string        `json:"session_id"`
	Sheet     *SheetRequest `json:"sheet"`
}

type presentReply struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	ValidationURL string `json:"validation_url"`
	Error         string `json:"error"`
}

type completeRequest struct {
	SessionID       string          `json:"session_id"`
	MerchantSession json.RawMessage `json:"merchant_session"`
}

type completeReply struct {
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	PaymentData   json.RawMessage `json:"payment_data"`
	Error         string          `json:"error"`
}

func (r *SheetRelay) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, capabilityTimeout)
	defer cancel()

	msg, err := r.nc.RequestWithContext(ctx, subjectCapability, nil)
	if err != nil {
		r.logger.Debug("apple pay capability probe failed", slog.String("error", err.Error()))
		return false
	}
	var reply capabilityReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return false
	}
	return reply.Supported
}

func (r *SheetRelay) Present(ctx context.Context, req *SheetRequest, validate ValidateFunc) (*Authorization, error) {
	sessionID := ulid.Make().String()

	data, err := json.Marshal(presentRequest{SessionID: sessionID, Sheet: req})
	if err != nil {
		return nil, fmt.Errorf("applepay: encoding present request: %w", err)
	}

	msg, err := r.nc.RequestWithContext(ctx, subjectPresent, data)
	if err != nil {
		return nil, r.relayError(ctx, err)
	}
	var presented presentReply
	if err := json.Unmarshal(msg.Data, &presented); err != nil {
		return nil, payment.BadResponse("Apple Pay sheet bridge returned an invalid response")
	}
	switch presented.Status {
	case "validating":
		// Sheet is up, client requests merchant validation.
	case "cancelled":
		return nil, payment.Cancelled()
	default:
		if presented.Error != "" {
			return nil, payment.Rejected(presented.Error)
		}
		return nil, payment.NotSupported("Apple Pay")
	}

	session, err := validate(ctx, presented.ValidationURL)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(completeRequest{SessionID: sessionID, MerchantSession: session})
	if err != nil {
		return nil, fmt.Errorf("applepay: encoding complete request: %w", err)
	}

	msg, err = r.nc.RequestWithContext(ctx, subjectComplete, data)
	if err != nil {
		return nil, r.relayError(ctx, err)
	}
	var completed completeReply
	if err := json.Unmarshal(msg.Data, &completed); err != nil {
		return nil, payment.BadResponse("Apple Pay sheet bridge returned an invalid response")
	}

	switch completed.Status {
	case "authorized":
		return &Authorization{
			TransactionID: completed.TransactionID,
			PaymentData:   completed.PaymentData,
		}, nil
	case "cancelled":
		return nil, payment.Cancelled()
	default:
		detail := completed.Error
		if detail == "" {
			detail = "Apple Pay payment failed"
		}
		return nil, payment.Rejected(detail)
	}
}

// relayError maps a dead sheet session to a cancellation: when the user
// closes the tab or lets the sheet time out, the request simply never
// gets a reply.
func (r *SheetRelay) relayError(ctx context.Context, err error) error {
	if ctx.Err() != nil || err == nats.ErrTimeout || err == nats.ErrNoResponders {
		return payment.Cancelled()
	}
	r.logger.Error("apple pay sheet relay failed", slog.String("error", err.Error()))
	return payment.Unreachable("Apple Pay sheet bridge unreachable")
}
