package middleware

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/dekorekillian57-star/spendo/api/responses"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

const (
	csrfCookieName = "spendo_csrf"
	csrfHeader     = "X-CSRF-Token"
)

// CSRF protects cookie-authenticated storefront routes. Requests carrying a
// bearer token are exempt since browsers never attach one automatically. The
// current token is echoed in the X-CSRF-Token response header.
func CSRF(cfg config.SessionConfig, origins []string, logg *logger.Logger) func(http.Handler) http.Handler {
	if !cfg.CSRFEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	protect := csrf.Protect(
		csrfKey(cfg),
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.CookieName(csrfCookieName),
		csrf.RequestHeader(csrfHeader),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(originHosts(origins)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := pkgerrors.Wrap(pkgerrors.CodeForbidden, csrf.FailureReason(r), "invalid csrf token")
			responses.WriteError(r.Context(), logg, w, err)
		})),
	)
	return func(next http.Handler) http.Handler {
		echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(csrfHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		})
		protected := protect(echo)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if bearerToken(r) != "" {
				r = csrf.UnsafeSkipCheck(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfKey(cfg config.SessionConfig) []byte {
	secret := strings.TrimSpace(cfg.CSRFKey)
	if secret == "" {
		secret = cfg.CookieSecret
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
