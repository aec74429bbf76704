package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// Criteria are the tracking inputs; any non-empty subset is accepted.
type Criteria struct {
	OrderCode  string
	Phone      string
	SmartCard  string
	PaymentRef string
}

// Normalize trims every field and canonicalizes the phone number.
func (c Criteria) Normalize() Criteria {
	return Criteria{
		OrderCode:  strings.TrimSpace(c.OrderCode),
		Phone:      types.NormalizePhone(c.Phone),
		SmartCard:  strings.TrimSpace(c.SmartCard),
		PaymentRef: strings.TrimSpace(c.PaymentRef),
	}
}

// Empty reports whether no criterion was supplied.
func (c Criteria) Empty() bool {
	return c.OrderCode == "" && c.Phone == "" && c.SmartCard == "" && c.PaymentRef == ""
}

// AdminFilter narrows the admin order list.
type AdminFilter struct {
	Status *enums.OrderStatus
	Search string
}

// OrderDTO is the wire shape consumed by the dashboards and the admin panel.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderID     string            `json:"order_id"`
	PackageType enums.PackageType `json:"package_type"`
	PackageName string            `json:"package_name"`
	Quantity    int               `json:"quantity"`
	Recipients  types.Recipients  `json:"recipients"`
	TotalPrice  string            `json:"total_price"`
	Status      enums.OrderStatus `json:"status"`
	PaymentRef  string            `json:"payment_ref"`
	Username    *string           `json:"username,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func NewOrderDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ID:          o.ID,
		OrderID:     o.OrderCode,
		PackageType: o.PackageType,
		PackageName: o.PackageName,
		Quantity:    o.Quantity,
		Recipients:  o.Recipients,
		TotalPrice:  o.TotalPrice.StringFixed(2),
		Status:      o.Status,
		PaymentRef:  o.PaymentRef,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func NewOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderDTO(o))
	}
	return out
}

func newRowDTO(row Row) OrderDTO {
	dto := NewOrderDTO(row.Order)
	dto.Username = row.Username
	return dto
}
