// Package handler wires stream endpoints to the stream service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"incorp/internal/stream/models"
	"incorp/internal/stream/service"
	"incorp/pkg/domain"
	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"
)

// Service defines the stream operations the handler needs.
type Service interface {
	CreateStream(ctx context.Context, handle domain.Handle, payee domain.UserID, rate int64) (*models.Stream, error)
	Claim(ctx context.Context, id domain.StreamID) (service.ClaimResult, error)
	GetStream(ctx context.Context, id domain.StreamID) (service.Status, error)
	ListForCaller(ctx context.Context) ([]service.Status, error)
	ListForCompany(ctx context.Context, handle domain.Handle) ([]service.Status, error)
}

// Handler exposes the stream HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a stream handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts stream endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/streams", h.HandleListMine)
	r.Get("/streams/{id}", h.HandleGet)
	r.Post("/streams/{id}/claim", h.HandleClaim)
	r.Get("/companies/{handle}/streams", h.HandleListCompany)
	r.Post("/companies/{handle}/streams", h.HandleCreate)
}

// CreateRequest opens a new stream.
type CreateRequest struct {
	Payee string `json:"payee"`
	Rate  int64  `json:"rate"`
}

// HandleCreate handles POST /companies/{handle}/streams.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	payee, err := domain.ParseUserID(req.Payee)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stream, err := h.service.CreateStream(ctx, handle, payee, req.Rate)
	if err != nil {
		h.logger.ErrorContext(ctx, "stream creation failed",
			"request_id", requestID,
			"handle", handle,
			"rate", req.Rate,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stream created",
		"request_id", requestID,
		"stream_id", stream.ID,
		"handle", handle,
		"rate", req.Rate,
	)
	httputil.WriteJSON(w, http.StatusCreated, stream)
}

// HandleClaim handles POST /streams/{id}/claim.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	id, err := domain.ParseStreamID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Claim(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "stream claim failed",
			"request_id", requestID,
			"stream_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stream claimed",
		"request_id", requestID,
		"stream_id", id,
		"amount", result.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleGet handles GET /streams/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseStreamID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.GetStream(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleListMine handles GET /streams.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListForCaller(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if statuses == nil {
		statuses = []service.Status{}
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}

// HandleListCompany handles GET /companies/{handle}/streams.
func (h *Handler) HandleListCompany(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses, err := h.service.ListForCompany(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if statuses == nil {
		statuses = []service.Status{}
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}
