package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dekorekillian57-star/spendo/api/responses"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	pkgredis "github.com/dekorekillian57-star/spendo/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255

	replayWindow         = 24 * time.Hour
	checkoutReplayWindow = 7 * 24 * time.Hour
	// claimTTL bounds how long an abandoned in-flight claim blocks retries.
	claimTTL    = 2 * time.Minute
	claimMarker = "in-flight"
)

type guardedRoute struct {
	method  string
	pattern string
	prefix  bool
	window  time.Duration
}

func (g guardedRoute) matches(method, pattern string) bool {
	if g.method != method {
		return false
	}
	if g.prefix {
		return strings.HasPrefix(pattern, g.pattern)
	}
	return pattern == g.pattern
}

var guardedRoutes = []guardedRoute{
	{method: http.MethodPost, pattern: "/api/v1/checkout", window: checkoutReplayWindow},
	{method: http.MethodPost, pattern: "/api/v1/auth/register", window: replayWindow},
	{method: http.MethodPost, pattern: "/api/admin/v1/orders/bulk-status", window: replayWindow},
	{method: http.MethodPost, pattern: "/api/admin/v1/orders/bulk-delete", window: replayWindow},
	{method: http.MethodPost, pattern: "/api/admin/v1/users/bulk-delete", window: replayWindow},
	{method: http.MethodPost, pattern: "/api/admin/v1/packages", prefix: true, window: replayWindow},
}

// storedResponse is what a completed request leaves behind for its retries.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency makes retries of guarded routes safe. The first request with a
// given Idempotency-Key claims it; concurrent duplicates get 409 while it runs
// and later duplicates get the recorded response. 5xx outcomes release the
// claim so the client can retry. Requests without the header pass through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			window, guarded := replayWindowFor(r.Method, routePattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !guarded || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintRequest(r.Method, body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			claimed, err := store.SetNX(ctx, key, claimMarker, claimTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayOrReject(w, r, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			persistCtx := context.WithoutCancel(ctx)
			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(persistCtx, key); err != nil {
					logError(ctx, logg, "release idempotency claim", err)
				}
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			})
			if err != nil {
				logError(ctx, logg, "encode idempotent response", err)
				return
			}
			if err := store.Set(persistCtx, key, string(payload), window); err != nil {
				logError(ctx, logg, "persist idempotent response", err)
			}
		})
	}
}

func replayOrReject(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	switch {
	case pkgredis.IsNil(err), err == nil && raw == claimMarker:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	if stored.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with a different request"))
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// requestScope keeps keys from different buyers apart.
func requestScope(r *http.Request) string {
	owner := "anonymous"
	if id := UserIDFromContext(r.Context()); id != "" {
		owner = "user:" + id
	} else if sid := GuestSessionFromContext(r.Context()); sid != "" {
		owner = "guest:" + sid
	}
	return strings.Join([]string{owner, r.Method, r.URL.Path}, "|")
}

func fingerprintRequest(method string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replayWindowFor(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, route := range guardedRoutes {
		if route.matches(method, pattern) {
			return route.window, true
		}
	}
	return 0, false
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
