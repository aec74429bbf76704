package controllers

import (
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/dekorekillian57-star/spendo/api/responses"
)

// CSRFToken hands browsers the token to echo in X-CSRF-Token on writes.
func CSRFToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"csrf_token": csrf.Token(r)})
	}
}
