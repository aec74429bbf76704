package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

type memoryIdemStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdemStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdemStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdemStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryIdemStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdemStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func guardedRequest(pattern, body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, pattern, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestReplayWindowFor(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", checkoutReplayWindow, true},
		{"register", http.MethodPost, "/api/v1/auth/register", replayWindow, true},
		{"bulk status", http.MethodPost, "/api/admin/v1/orders/bulk-status", replayWindow, true},
		{"bulk user delete", http.MethodPost, "/api/admin/v1/users/bulk-delete", replayWindow, true},
		{"package create", http.MethodPost, "/api/admin/v1/packages/", replayWindow, true},
		{"single status", http.MethodPatch, "/api/admin/v1/orders/{orderId}/status", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"empty", http.MethodPost, "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			window, ok := replayWindowFor(tc.method, tc.pattern)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, window)
		})
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, guardedRequest("/api/v1/checkout", `{}`, ""))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysCompletedCheckout(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"reference":"SPD-1"}}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, guardedRequest("/api/v1/checkout", `{"email":"ama@example.com"}`, "chk-1"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	again := httptest.NewRecorder()
	h.ServeHTTP(again, guardedRequest("/api/v1/checkout", `{"email":"ama@example.com"}`, "chk-1"))
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get(replayedHeader))
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"reference":"SPD-1"}}`, again.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, checkoutReplayWindow, ttl, key)
	}
}

func TestIdempotencyRejectsDifferentBodyForSameKey(t *testing.T) {
	store := newMemoryIdemStore()
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), guardedRequest("/api/v1/auth/register", `{"username":"ama"}`, "reg-1"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, guardedRequest("/api/v1/auth/register", `{"username":"kofi"}`, "reg-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec.Body.Bytes()))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	req := guardedRequest("/api/v1/checkout", `{}`, "chk-2")
	store.data[store.IdempotencyKey(requestScope(req), "chk-2")] = claimMarker

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyReleasesClaimOnServerError(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, guardedRequest("/api/v1/checkout", `{}`, "chk-3"))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyScopesKeysPerBuyer(t *testing.T) {
	store := newMemoryIdemStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, sid := range []string{"guest-a", "guest-b"} {
		req := guardedRequest("/api/v1/checkout", `{}`, "same-key")
		req = req.WithContext(WithGuestSession(req.Context(), sid))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := Idempotency(newMemoryIdemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, guardedRequest("/api/v1/checkout", `{}`, strings.Repeat("k", maxIdempotencyKey+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
