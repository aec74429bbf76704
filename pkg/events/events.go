package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published on the order topic.
const (
	TypeOrderConfirmed     = "order.confirmed"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderLine is one materialized order in an event payload.
type OrderLine struct {
	OrderID     string `json:"order_id"`
	PackageType string `json:"package_type"`
	PackageName string `json:"package_name"`
	Quantity    int    `json:"quantity"`
	TotalPrice  string `json:"total_price"`
	Status      string `json:"status"`
}

// OrderEvent is the envelope for every order topic message.
type OrderEvent struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	PaymentRef string      `json:"payment_ref,omitempty"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	Email      string      `json:"email,omitempty"`
	Amount     string      `json:"amount,omitempty"`
	Currency   string      `json:"currency,omitempty"`
	Orders     []OrderLine `json:"orders"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher emits order events for downstream fulfilment.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	Close() error
}

// NoopPublisher drops events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }
