package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dekorekillian57-star/spendo/api/responses"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	pkgredis "github.com/dekorekillian57-star/spendo/pkg/redis"
)

// maxThrottledBody caps how much of an auth form is buffered to find the account.
const maxThrottledBody = 64 << 10

// ThrottlePolicy bounds how often one client address and one account
// identifier may hit a credential endpoint inside a fixed window.
type ThrottlePolicy struct {
	name       string
	window     time.Duration
	perIP      int
	perAccount int
}

func NewThrottlePolicy(name string, window time.Duration, perIP, perAccount int) ThrottlePolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return ThrottlePolicy{name: name, window: window, perIP: perIP, perAccount: perAccount}
}

func (p ThrottlePolicy) active() bool {
	return p.window > 0 && (p.perIP > 0 || p.perAccount > 0)
}

// Throttle counts attempts per client IP and per account identifier (the
// hashed email, login or username field of the JSON body) and answers 429
// with Retry-After once either counter passes its limit.
func Throttle(policy ThrottlePolicy, store pkgredis.RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.perIP > 0 {
				if ip := ClientIP(r); ip != "" {
					scope := policy.name + ":ip:" + ip
					if !checkThrottle(ctx, w, store, policy, scope, policy.perIP, logg) {
						return
					}
				}
			}

			if policy.perAccount > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottledBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if account := accountIdentifier(body); account != "" {
					scope := policy.name + ":account:" + digest(account)
					if !checkThrottle(ctx, w, store, policy, scope, policy.perAccount, logg) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkThrottle bumps one counter and writes the rejection when it is over limit.
func checkThrottle(ctx context.Context, w http.ResponseWriter, store pkgredis.RateLimitStore, policy ThrottlePolicy, scope string, limit int, logg *logger.Logger) bool {
	count, err := store.IncrWithTTL(ctx, store.RateLimitKey(scope), policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"scope":    scope,
			"attempts": count,
			"limit":    limit,
		}), "request throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// ClientIP prefers proxy headers and falls back to the socket address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// accountIdentifier pulls the field a credential form names the account by.
func accountIdentifier(body []byte) string {
	var form struct {
		Email    string `json:"email"`
		Login    string `json:"login"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &form); err != nil {
		return ""
	}
	for _, v := range []string{form.Email, form.Login, form.Username} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
