package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := NewMemoryStore([]Policy{{Limit: 2, Window: time.Minute}})

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Store: store})(next)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/predict", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	r := httptest.NewRequest(http.MethodPost, "/predict", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 2, calls, "rejected request must not reach the handler")

	var body RejectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Detail)
	require.NotNil(t, body.Limit)
	assert.Equal(t, 2, *body.Limit)
	require.NotNil(t, body.Remaining)
	assert.Equal(t, 0, *body.Remaining)
	require.NotNil(t, body.Reset)
	assert.Greater(t, *body.Reset, time.Now().Unix())
}

func TestMiddleware_KeysByForwardedFor(t *testing.T) {
	store := NewMemoryStore([]Policy{{Limit: 1, Window: time.Minute}})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Store: store})(next)

	// Same connection address, different forwarded clients: separate buckets.
	for _, client := range []string{"203.0.113.9", "198.51.100.2"} {
		r := httptest.NewRequest(http.MethodPost, "/predict", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, "client %s", client)
	}

	r := httptest.NewRequest(http.MethodPost, "/predict", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

type failingStore struct{}

func (failingStore) Admit(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("store unavailable")
}

func TestMiddleware_FailsOpenOnStoreError(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Store: failingStore{}})(next)

	r := httptest.NewRequest(http.MethodPost, "/predict", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestMiddleware_CustomKeyFunc(t *testing.T) {
	store := NewMemoryStore([]Policy{{Limit: 1, Window: time.Minute}})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{
		Store: store,
		KeyFn: func(r *http.Request) string { return r.Header.Get("X-Api-Key") },
	})(next)

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		r := httptest.NewRequest(http.MethodPost, "/predict", nil)
		r.Header.Set("X-Api-Key", "k1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, want, w.Code, "request %d", i+1)
	}
}
