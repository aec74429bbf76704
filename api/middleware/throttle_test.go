package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

type countingStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newCountingStore() *countingStore {
	return &countingStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *countingStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	c.ttls[key] = ttl
	return c.counts[key], nil
}

func (c *countingStore) RateLimitKey(scope string) string { return "rl:" + scope }

func loginRequest(body, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = addr
	return req
}

func TestThrottleKeepsBodyForHandler(t *testing.T) {
	policy := NewThrottlePolicy("login", 5*time.Minute, 5, 5)
	h := Throttle(policy, newCountingStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"login":"ama","password":"secret12"}`, string(body))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest(`{"login":"ama","password":"secret12"}`, "41.66.1.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestThrottleBlocksAccountAcrossAddresses(t *testing.T) {
	store := newCountingStore()
	h := Throttle(NewThrottlePolicy("login", 5*time.Minute, 0, 2), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i, addr := range []string{"41.66.1.2:1", "41.66.1.3:1", "41.66.1.4:1"} {
		body := `{"login":"Kwame_1","password":"x"}`
		if i == 1 {
			body = `{"login":"  kwame_1 ","password":"x"}`
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(body, addr))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "300", rec.Header().Get("Retry-After"))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec.Body.Bytes()))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestThrottleBlocksAddress(t *testing.T) {
	store := newCountingStore()
	h := Throttle(NewThrottlePolicy("register", time.Hour, 1, 0), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, loginRequest(`{"email":"a@example.com"}`, "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, loginRequest(`{"email":"b@example.com"}`, "5.6.7.8:9999"))

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	for key, ttl := range store.ttls {
		assert.True(t, strings.HasPrefix(key, "rl:register:ip:"), key)
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestThrottleDisabledPolicyPassesThrough(t *testing.T) {
	store := newCountingStore()
	h := Throttle(NewThrottlePolicy("", 0, 1, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(`{"login":"ama"}`, "1.1.1.1:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, store.counts)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "41.66.9.9")
	assert.Equal(t, "41.66.9.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "41.66.1.2, 10.0.0.1")
	assert.Equal(t, "41.66.1.2", ClientIP(req))
}
