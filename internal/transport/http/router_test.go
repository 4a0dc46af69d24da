package httptransport

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incorp/pkg/domain"
	"incorp/pkg/platform/middleware/auth"
	"incorp/pkg/requestcontext"
)

const signingKey = "test-signing-key"

type probeHandler struct {
	lastUserID domain.UserID
	lastReqID  string
}

func (p *probeHandler) Register(r chi.Router) {
	r.Get("/probe", func(w http.ResponseWriter, req *http.Request) {
		p.lastUserID = requestcontext.UserID(req.Context())
		p.lastReqID = requestcontext.RequestID(req.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRouter(t *testing.T, probe *probeHandler) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Validator: auth.NewValidator(signingKey),
		Logger:    slog.Default(),
		Handlers:  []Registrar{probe},
	})
}

func mintToken(t *testing.T, userID domain.UserID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: "alice@acme.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func TestRouter(t *testing.T) {
	t.Run("health is reachable without a token", func(t *testing.T) {
		router := newTestRouter(t, &probeHandler{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics is reachable without a token", func(t *testing.T) {
		router := newTestRouter(t, &probeHandler{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("domain routes require a bearer token", func(t *testing.T) {
		router := newTestRouter(t, &probeHandler{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("a valid token reaches the handler with identity and request id", func(t *testing.T) {
		probe := &probeHandler{}
		router := newTestRouter(t, probe)
		userID := domain.NewUserID()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, userID))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, probe.lastUserID)
		assert.NotEmpty(t, probe.lastReqID)
	})

	t.Run("degraded health reports 503", func(t *testing.T) {
		router := NewRouter(Deps{
			Validator: auth.NewValidator(signingKey),
			Logger:    slog.Default(),
			Health: func(*http.Request) error {
				return assert.AnError
			},
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
