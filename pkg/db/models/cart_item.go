package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// CartItem is one line of an authenticated shopper's cart. (user_id, package_id) is unique.
type CartItem struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	PackageID  uuid.UUID        `gorm:"column:package_id;type:uuid;not null"`
	Quantity   int              `gorm:"column:quantity;not null;default:1"`
	Recipients types.Recipients `gorm:"column:recipients;type:jsonb;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }
