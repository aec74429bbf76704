package cart

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

// Owner identifies whose cart is addressed: a signed-in user or a guest session.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

func (o Owner) validate() error {
	if o.UserID != nil && *o.UserID != uuid.Nil {
		return nil
	}
	if o.UserID == nil && strings.TrimSpace(o.SessionID) != "" {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
}
