package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/dekorekillian57-star/spendo/api/responses"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

const guestSessionValue = "sid"

// NewGuestCookieStore signs the guest cart cookie with the configured secret.
func NewGuestCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.CookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// GuestSession guarantees every storefront request carries an anonymous session
// id, issuing a signed cookie the first time a browser shows up. The id keys the
// guest cart and is merged into the account cart on login.
func GuestSession(store sessions.Store, cookieName string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A tampered or stale cookie yields a fresh session alongside the error.
			sess, _ := store.Get(r, cookieName)
			if sess == nil {
				sess = sessions.NewSession(store, cookieName)
			}
			id, _ := sess.Values[guestSessionValue].(string)
			if id == "" {
				id = uuid.NewString()
				sess.Values[guestSessionValue] = id
				if err := sess.Save(r, w); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue guest session"))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithGuestSession(r.Context(), id)))
		})
	}
}
