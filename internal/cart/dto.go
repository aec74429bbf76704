package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

type ItemDTO struct {
	ID          string            `json:"id"`
	PackageID   uuid.UUID         `json:"package_id"`
	PackageName string            `json:"package_name"`
	PackageType enums.PackageType `json:"package_type"`
	Network     *string           `json:"network,omitempty"`
	UnitPrice   string            `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Recipients  types.Recipients  `json:"recipients"`
	LineTotal   string            `json:"line_total"`
	AddedAt     time.Time         `json:"added_at"`
}

type CartDTO struct {
	Items     []ItemDTO `json:"items"`
	ItemCount int       `json:"item_count"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
}

func NewCartDTO(c *Cart, currency string) CartDTO {
	out := CartDTO{Items: []ItemDTO{}, Total: "0.00", Currency: currency}
	if c == nil {
		return out
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, ItemDTO{
			ID:          it.ID,
			PackageID:   it.PackageID,
			PackageName: it.PackageName,
			PackageType: it.PackageType,
			Network:     it.Network,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Quantity:    it.Quantity,
			Recipients:  it.Recipients,
			LineTotal:   it.LineTotal.StringFixed(2),
			AddedAt:     it.AddedAt,
		})
	}
	out.ItemCount = c.Count()
	out.Total = c.Total.StringFixed(2)
	return out
}
