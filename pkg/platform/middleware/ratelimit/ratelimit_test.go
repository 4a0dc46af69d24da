package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incorp/pkg/domain"
	"incorp/pkg/requestcontext"
)

func TestMemoryLimiter(t *testing.T) {
	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		limiter := NewMemoryLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			result, err := limiter.Allow(context.Background(), "alice")
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}
		result, err := limiter.Allow(context.Background(), "alice")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)
	})

	t.Run("keys do not share a window", func(t *testing.T) {
		limiter := NewMemoryLimiter(1, time.Minute)

		_, err := limiter.Allow(context.Background(), "alice")
		require.NoError(t, err)
		result, err := limiter.Allow(context.Background(), "bob")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("a new window resets the count", func(t *testing.T) {
		limiter := NewMemoryLimiter(1, time.Minute)
		base := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
		limiter.now = func() time.Time { return base }

		_, err := limiter.Allow(context.Background(), "alice")
		require.NoError(t, err)
		blocked, err := limiter.Allow(context.Background(), "alice")
		require.NoError(t, err)
		assert.False(t, blocked.Allowed)

		limiter.now = func() time.Time { return base.Add(time.Minute) }
		result, err := limiter.Allow(context.Background(), "alice")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects over-limit requests with 429 and headers", func(t *testing.T) {
		handler := Middleware(NewMemoryLimiter(1, time.Minute), slog.Default())(okHandler)
		userID := domain.NewUserID()

		req := httptest.NewRequest(http.MethodGet, "/companies", nil)
		req = req.WithContext(requestcontext.WithUserID(req.Context(), userID))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		handler := Middleware(erroringLimiter{}, slog.Default())(okHandler)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/companies", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
