// Package handler wires funding endpoints to the funding service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"incorp/internal/funding"
	"incorp/pkg/domain"
	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"
)

// Service defines the funding operations the handler needs.
type Service interface {
	Fund(ctx context.Context, handle domain.Handle, amount int64) (funding.Result, error)
	Status(ctx context.Context, handle domain.Handle) (funding.Result, error)
}

// Handler exposes the funding HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a funding handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts funding endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/companies/{handle}/fund", h.HandleFund)
	r.Get("/companies/{handle}/fund", h.HandleStatus)
}

// FundRequest is the funding request body.
type FundRequest struct {
	Amount int64 `json:"amount"`
}

// HandleFund handles POST /companies/{handle}/fund.
func (h *Handler) HandleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[FundRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Fund(ctx, handle, req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "funding failed",
			"request_id", requestID,
			"handle", handle,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "funding processed",
		"request_id", requestID,
		"handle", handle,
		"amount", req.Amount,
		"state", result.State,
		"flipped", result.Flipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleStatus handles GET /companies/{handle}/fund.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.Status(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
