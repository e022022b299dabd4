package googlepay

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

const (
	subjectCapability = "wallet.google.capability"
	subjectPresent    = "wallet.google.present"
)

const capabilityTimeout = 3 * time.Second

// SheetRelay is the production SheetDriver: it relays the sheet flow to
// the storefront client over NATS request/reply.
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
	Status       string          `json:"status"`
	PaymentToken string          `json:"payment_token"`
	MethodData   json.RawMessage `json:"method_data"`
	Error        string          `json:"error"`
}

func (r *SheetRelay) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, capabilityTimeout)
	defer cancel()

	msg, err := r.nc.RequestWithContext(ctx, subjectCapability, nil)
	if err != nil {
		r.logger.Debug("google pay capability probe failed", slog.String("error", err.Error()))
		return false
	}
	var reply capabilityReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return false
	}
	return reply.Supported
}

func (r *SheetRelay) Present(ctx context.Context, req *SheetRequest) (*Authorization, error) {
	data, err := json.Marshal(presentRequest{SessionID: ulid.Make().String(), Sheet: req})
	if err != nil {
		return nil, fmt.Errorf("googlepay: encoding present request: %w", err)
	}

	msg, err := r.nc.RequestWithContext(ctx, subjectPresent, data)
	if err != nil {
		if ctx.Err() != nil || err == nats.ErrTimeout || err == nats.ErrNoResponders {
			return nil, payment.Cancelled()
		}
		r.logger.Error("google pay sheet relay failed", slog.String("error", err.Error()))
		return nil, payment.Unreachable("Google Pay sheet bridge unreachable")
	}

	var reply presentReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, payment.BadResponse("Google Pay sheet bridge returned an invalid response")
	}

	switch reply.Status {
	case "authorized":
		return &Authorization{
			PaymentToken: reply.PaymentToken,
			MethodData:   reply.MethodData,
		}, nil
	case "cancelled":
		return nil, payment.Cancelled()
	default:
		detail := reply.Error
		if detail == "" {
			detail = "Google Pay payment failed"
		}
		return nil, payment.Rejected(detail)
	}
}
