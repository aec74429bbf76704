package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// ErrItemNotFound is returned when an item id does not belong to the owner's cart.
var ErrItemNotFound = errors.New("cart item not found")

// Line is a stored cart line before it is joined with the catalog.
type Line struct {
	ID         string           `json:"-"`
	PackageID  uuid.UUID        `json:"package_id"`
	Quantity   int              `json:"quantity"`
	Recipients types.Recipients `json:"recipients"`
	AddedAt    time.Time        `json:"added_at"`
}

// fitRecipients drops recipients beyond the line quantity.
func (l *Line) fitRecipients() {
	if l.Quantity >= 0 && len(l.Recipients) > l.Quantity {
		l.Recipients = l.Recipients[:l.Quantity]
	}
}

// LineStore persists lines for one kind of owner.
type LineStore interface {
	Add(ctx context.Context, owner Owner, line Line) (string, error)
	SetQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error
	Remove(ctx context.Context, owner Owner, itemID string) error
	Clear(ctx context.Context, owner Owner) error
	Lines(ctx context.Context, owner Owner) ([]Line, error)
}

// TxClearer empties a user's cart inside a caller-owned transaction.
type TxClearer interface {
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}
