package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// Order is one materialized cart line. Lines from one checkout share PaymentRef
// and are unique on (payment_ref, line_no).
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	OrderCode     string            `gorm:"column:order_code;not null;uniqueIndex"`
	PackageType   enums.PackageType `gorm:"column:package_type;type:package_type;not null"`
	PackageID     *uuid.UUID        `gorm:"column:package_id;type:uuid"`
	PackageName   string            `gorm:"column:package_name;not null"`
	Quantity      int               `gorm:"column:quantity;not null"`
	Recipients    types.Recipients  `gorm:"column:recipients;type:jsonb;not null"`
	TotalPrice    decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentRef    string            `gorm:"column:payment_ref;not null"`
	LineNo        int               `gorm:"column:line_no;not null"`
	CustomerEmail string            `gorm:"column:customer_email;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
