package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

// PackageDTO is the public catalog shape.
type PackageDTO struct {
	ID          uuid.UUID         `json:"id"`
	Type        enums.PackageType `json:"type"`
	TypeLabel   string            `json:"type_label"`
	Name        string            `json:"name"`
	Price       string            `json:"price"`
	Network     *string           `json:"network,omitempty"`
	Description *string           `json:"description,omitempty"`
}

func NewPackageDTO(p models.Package) PackageDTO {
	return PackageDTO{
		ID:          p.ID,
		Type:        p.Type,
		TypeLabel:   p.Type.Label(),
		Name:        p.Name,
		Price:       p.Price.StringFixed(2),
		Network:     p.Network,
		Description: p.Description,
	}
}

func NewPackageDTOs(pkgs []models.Package) []PackageDTO {
	out := make([]PackageDTO, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, NewPackageDTO(p))
	}
	return out
}

// PackageInput is the admin create/update payload.
type PackageInput struct {
	Type        string          `json:"type" validate:"required"`
	Name        string          `json:"name" validate:"required,max=120"`
	Price       decimal.Decimal `json:"price"`
	Network     *string         `json:"network" validate:"omitempty,max=40"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
}
