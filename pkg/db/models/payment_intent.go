package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// PaymentIntent correlates a gateway reference with the cart snapshot taken at checkout.
type PaymentIntent struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference        string                    `gorm:"column:reference;not null;uniqueIndex"`
	UserID           *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	SessionID        *string                   `gorm:"column:session_id"`
	Email            string                    `gorm:"column:email;not null"`
	AmountMinor      int64                     `gorm:"column:amount_minor;not null"`
	Currency         string                    `gorm:"column:currency;not null"`
	Status           enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status;not null;default:'initialized'"`
	Lines            CheckoutLines             `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	AuthorizationURL string                    `gorm:"column:authorization_url;not null"`
	FailureReason    *string                   `gorm:"column:failure_reason"`
	ConfirmedAt      *time.Time                `gorm:"column:confirmed_at"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

// CheckoutLine freezes one cart line at checkout so confirmation never re-reads the cart.
type CheckoutLine struct {
	PackageID   uuid.UUID         `json:"package_id"`
	PackageName string            `json:"package_name"`
	PackageType enums.PackageType `json:"package_type"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Recipients  types.Recipients  `json:"recipients"`
	LineTotal   decimal.Decimal   `json:"line_total"`
}

type CheckoutLines []CheckoutLine

// Total sums line totals.
func (l CheckoutLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.LineTotal)
	}
	return total
}
