package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Proxies may forward their own ids; anything odd is replaced.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,64}$`)

// RequestID tags every request (and its log lines) with an id echoed back to the client.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
