package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/ratelimit"
)

type mockSpender struct{ mock.Mock }

func (m *mockSpender) Spend(ctx context.Context, parts ...string) (bool, error) {
	args := m.Called(parts)
	return args.Bool(0), args.Error(1)
}

func (m *mockSpender) SpendN(ctx context.Context, n int, parts ...string) (bool, error) {
	args := m.Called(n, parts)
	return args.Bool(0), args.Error(1)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("allows within limit", func(t *testing.T) {
		sp := &mockSpender{}
		sp.On("Spend", []string{"emit", "192.0.2.1"}).Return(true, nil).Once()

		h := ratelimit.Middleware(sp, "emit", ratelimit.RemoteIP)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		sp.AssertExpectations(t)
	})

	t.Run("rejects when exhausted", func(t *testing.T) {
		sp := &mockSpender{}
		sp.On("Spend", []string{"emit", "192.0.2.1"}).Return(false, nil).Once()

		h := ratelimit.Middleware(sp, "emit", ratelimit.RemoteIP)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("fails open on store error", func(t *testing.T) {
		sp := &mockSpender{}
		sp.On("Spend", mock.Anything).Return(false, errors.New("down")).Once()

		h := ratelimit.Middleware(sp, "emit", ratelimit.RemoteIP)(okHandler())
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("skips requests without key", func(t *testing.T) {
		sp := &mockSpender{}
		noKey := func(*http.Request) []string { return nil }

		h := ratelimit.Middleware(sp, "emit", noKey)(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		sp.AssertNotCalled(t, "Spend", mock.Anything)
	})

	t.Run("panics without spender", func(t *testing.T) {
		require.Panics(t, func() { ratelimit.Middleware(nil, "emit", ratelimit.RemoteIP) })
	})
}

func TestComposite(t *testing.T) {
	t.Parallel()

	header := func(r *http.Request) []string { return []string{r.Header.Get("X-Device")} }
	fn := ratelimit.Composite(ratelimit.RemoteIP, header)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Device", strings.Repeat("a", 100))

	parts := fn(req)
	require.Len(t, parts, 2)
	assert.Equal(t, "2001_db8__1", parts[0])
	assert.Len(t, parts[1], 32)
}
