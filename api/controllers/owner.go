package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/api/middleware"
	"github.com/dekorekillian57-star/spendo/internal/cart"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

// cartOwner prefers the signed-in user and falls back to the guest cookie.
func cartOwner(r *http.Request) (cart.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return cart.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return cart.UserOwner(id), nil
	}
	if sid := middleware.GuestSessionFromContext(r.Context()); sid != "" {
		return cart.GuestOwner(sid), nil
	}
	return cart.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session missing")
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
