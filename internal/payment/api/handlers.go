package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Anri-17/bolt-generated-project/internal/common/api"
	"github.com/Anri-17/bolt-generated-project/internal/common/database"
	"github.com/Anri-17/bolt-generated-project/internal/common/money"
	"github.com/Anri-17/bolt-generated-project/internal/payment"
	"github.com/Anri-17/bolt-generated-project/internal/payment/ledger"
)

// Handler serves the payments API.
type Handler struct {
	dispatcher *payment.Dispatcher
	store      ledger.Store
	logger     *slog.Logger
}

func NewHandler(dispatcher *payment.Dispatcher, store ledger.Store, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

// Routes mounts the payments endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreatePayment)
	r.Get("/", h.ListPayments)
	r.Get("/summary", h.Summary)
	r.Get("/{id}", h.GetPayment)
	return r
}

// CreatePaymentRequest is the checkout payment submission.
type CreatePaymentRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Currency        string `json:"currency" validate:"omitempty,len=3,uppercase"`
	OrderID         string `json:"order_id" validate:"required,max=64"`
	CustomerID      string `json:"customer_id" validate:"omitempty,max=64"`
	Method          string `json:"method" validate:"required"`
	IBAN            string `json:"iban" validate:"omitempty,max=34"`
	DestinationName string `json:"destination_name" validate:"omitempty,max=128"`
}

// CreatePayment runs a payment attempt and returns the normalized
// outcome. The response is always 200: provider failures are data, not
// transport errors.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	method, _ := payment.ParseMethod(req.Method)

	start := time.Now()
	outcome := h.dispatcher.Process(r.Context(), &payment.Request{
		Amount:          req.Amount,
		Currency:        money.Currency(req.Currency),
		OrderID:         req.OrderID,
		CustomerID:      req.CustomerID,
		Method:          method,
		DestinationIBAN: req.IBAN,
		DestinationName: req.DestinationName,
	})
	observeAttempt(req.Method, string(outcome.Status), time.Since(start))

	api.WriteJSON(w, http.StatusOK, outcome)
}

// ListPayments returns ledger entries, newest first. With order_id it
// returns that order's attempts; without it, a paginated listing.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if orderID := r.URL.Query().Get("order_id"); orderID != "" {
		entries, err := h.store.ListByOrder(r.Context(), orderID)
		if err != nil {
			h.logger.Error("failed to list payments by order",
				slog.String("order_id", orderID), slog.String("error", err.Error()))
			api.InternalError(w, "failed to list payments")
			return
		}
		if entries == nil {
			entries = []*ledger.Entry{}
		}
		api.WriteData(w, http.StatusOK, entries)
		return
	}

	params := api.GetPaginationParams(r, 20, 100)
	entries, total, err := h.store.List(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.logger.Error("failed to list payments", slog.String("error", err.Error()))
		api.InternalError(w, "failed to list payments")
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	api.WritePaginated(w, entries, &api.Pagination{
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: int64(params.Offset+len(entries)) < total,
	})
}

// GetPayment returns a single ledger entry by id.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.store.Get(r.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			api.NotFound(w, "payment not found")
			return
		}
		h.logger.Error("failed to get payment",
			slog.String("id", id), slog.String("error", err.Error()))
		api.InternalError(w, "failed to get payment")
		return
	}
	api.WriteData(w, http.StatusOK, entry)
}

// Summary returns per-method, per-status aggregates for reconciliation.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Summary(r.Context())
	if err != nil {
		h.logger.Error("failed to summarize payments", slog.String("error", err.Error()))
		api.InternalError(w, "failed to summarize payments")
		return
	}
	if summary == nil {
		summary = []ledger.SummaryRow{}
	}
	api.WriteData(w, http.StatusOK, summary)
}
