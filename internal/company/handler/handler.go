// Package handler wires company endpoints to the company service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"incorp/internal/company/models"
	"incorp/internal/company/service"
	"incorp/pkg/domain"
	"incorp/pkg/platform/httputil"
	"incorp/pkg/requestcontext"

	dErrors "incorp/pkg/domain-errors"
)

// Service defines the company operations the handler needs.
type Service interface {
	CreateCompany(ctx context.Context, input service.CreateCompanyInput) (*models.Company, error)
	IssueShares(ctx context.Context, handle domain.Handle, totalShares int64, splits []service.SplitInput) ([]*models.Shareholder, error)
	GetCompany(ctx context.Context, handle domain.Handle) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	CapTable(ctx context.Context, handle domain.Handle) ([]*models.Shareholder, error)
}

// Handler exposes the company HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a company handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts company endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies", h.HandleList)
	r.Post("/companies", h.HandleCreate)
	r.Get("/companies/{handle}", h.HandleGet)
	r.Get("/companies/{handle}/shareholders", h.HandleCapTable)
	r.Post("/companies/{handle}/shares", h.HandleIssueShares)
}

// CreateRequest is the incorporation request body.
type CreateRequest struct {
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Director    string `json:"director"`
}

// HandleCreate handles POST /companies.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	company, err := h.service.CreateCompany(ctx, service.CreateCompanyInput{
		Handle:      req.Handle,
		Name:        req.Name,
		Description: req.Description,
		Email:       req.Email,
		Director:    req.Director,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "company creation failed",
			"request_id", requestID,
			"handle", req.Handle,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "company created",
		"request_id", requestID,
		"handle", company.Handle,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, company)
}

// IssueSharesRequest fixes a company's cap table.
type IssueSharesRequest struct {
	TotalShares int64 `json:"total_shares"`
	Splits      []struct {
		Email   string  `json:"email"`
		Percent float64 `json:"percent"`
	} `json:"splits"`
}

// HandleIssueShares handles POST /companies/{handle}/shares.
func (h *Handler) HandleIssueShares(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[IssueSharesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	splits := make([]service.SplitInput, len(req.Splits))
	for i, sp := range req.Splits {
		splits[i] = service.SplitInput{Email: sp.Email, Percent: sp.Percent}
	}

	holders, err := h.service.IssueShares(ctx, handle, req.TotalShares, splits)
	if err != nil {
		h.logger.ErrorContext(ctx, "share issuance failed",
			"request_id", requestID,
			"handle", handle,
			"total_shares", req.TotalShares,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "shares issued",
		"request_id", requestID,
		"handle", handle,
		"total_shares", req.TotalShares,
		"shareholders", len(holders),
	)
	httputil.WriteJSON(w, http.StatusCreated, holders)
}

// HandleGet handles GET /companies/{handle}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "company not found"))
		return
	}
	company, err := h.service.GetCompany(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, company)
}

// HandleList handles GET /companies.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if companies == nil {
		companies = []*models.Company{}
	}
	httputil.WriteJSON(w, http.StatusOK, companies)
}

// HandleCapTable handles GET /companies/{handle}/shareholders.
func (h *Handler) HandleCapTable(w http.ResponseWriter, r *http.Request) {
	handle, err := domain.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "company not found"))
		return
	}
	holders, err := h.service.CapTable(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if holders == nil {
		holders = []*models.Shareholder{}
	}
	httputil.WriteJSON(w, http.StatusOK, holders)
}
