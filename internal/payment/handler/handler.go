// Package handler wires payment endpoints to the payment service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"incorp/internal/payment/models"
	"incorp/internal/payment/service"
	"incorp/pkg/domain"
	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"
)

// Service defines the payment operations the handler needs.
type Service interface {
	GetBalance(ctx context.Context, handle domain.Handle) (int64, error)
	ListPayments(ctx context.Context, handle domain.Handle) ([]*models.Payment, error)
	Transfer(ctx context.Context, input service.TransferInput) (*models.Payment, error)
	Backfill(ctx context.Context, handle domain.Handle, since time.Time) (int, error)
}

// Handler exposes the payment HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a payment handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts payment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/{handle}/balance", h.HandleBalance)
	r.Get("/companies/{handle}/payments", h.HandleList)
	r.Post("/payments/transfer", h.HandleTransfer)
	r.Post("/companies/{handle}/payments/backfill", h.HandleBackfill)
}

// BalanceResponse reports the chain-authoritative balance.
type BalanceResponse struct {
	Handle  string `json:"handle"`
	Balance int64  `json:"balance"`
}

// HandleBalance handles GET /companies/{handle}/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.GetBalance(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Handle: handle.String(), Balance: balance})
}

// HandleList handles GET /companies/{handle}/payments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	httputil.WriteJSON(w, http.StatusOK, payments)
}

// TransferRequest is the transfer request body.
type TransferRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// HandleTransfer handles POST /payments/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	from, err := domain.ParseHandle(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := domain.ParseHandle(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payment, err := h.service.Transfer(ctx, service.TransferInput{
		From:        from,
		To:          to,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer failed",
			"request_id", requestID,
			"from", req.From,
			"to", req.To,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transfer confirmed",
		"request_id", requestID,
		"from", req.From,
		"to", req.To,
		"amount", req.Amount,
		"reference", payment.Reference,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, payment)
}

// BackfillResponse reports how many rows a backfill pass recovered.
type BackfillResponse struct {
	Recovered int `json:"recovered"`
}

// HandleBackfill handles POST /companies/{handle}/payments/backfill. The
// window defaults to 24 hours and can be widened with ?since_hours=N.
func (h *Handler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	window := 24 * time.Hour
	if raw := r.URL.Query().Get("since_hours"); raw != "" {
		if hours, err := time.ParseDuration(raw + "h"); err == nil && hours > 0 {
			window = hours
		}
	}

	recovered, err := h.service.Backfill(ctx, handle, requestcontext.Now(ctx).Add(-window))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "payment backfill complete",
		"handle", handle,
		"recovered", recovered,
	)
	httputil.WriteJSON(w, http.StatusOK, BackfillResponse{Recovered: recovered})
}
