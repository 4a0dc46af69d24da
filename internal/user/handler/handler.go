// Package handler wires profile endpoints to the user service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"incorp/internal/user/models"
	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"
)

// Service defines the profile operations the handler needs.
type Service interface {
	Profile(ctx context.Context) (*models.Profile, error)
	Verify(ctx context.Context) (*models.Profile, error)
}

// Handler exposes the profile HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a user handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profile", h.HandleProfile)
	r.Post("/profile/verify", h.HandleVerify)
}

// HandleProfile handles GET /profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// HandleVerify handles POST /profile/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.service.Verify(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "user verified",
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, profile)
}
