package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

// Filter narrows catalog listings.
type Filter struct {
	Type    *enums.PackageType
	Network string
}

// Repository persists catalog packages.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// List returns packages ordered by type then price.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Package, error) {
	q := r.DB(ctx).Model(&models.Package{})
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Network != "" {
		q = q.Where("LOWER(network) = LOWER(?)", filter.Network)
	}
	var pkgs []models.Package
	if err := q.Order("type ASC").Order("price ASC").Order("name ASC").Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}

// FindByID returns gorm.ErrRecordNotFound when missing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	if err := r.DB(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

// FindByIDs loads every package in ids; missing ids are simply absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Package, error) {
	out := make(map[uuid.UUID]models.Package, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var pkgs []models.Package
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&pkgs).Error; err != nil {
		return nil, err
	}
	for _, p := range pkgs {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	return r.DB(ctx).Create(pkg).Error
}

func (r *Repository) Update(ctx context.Context, pkg *models.Package) error {
	res := r.DB(ctx).Model(&models.Package{}).Where("id = ?", pkg.ID).Updates(map[string]any{
		"type":        pkg.Type,
		"name":        pkg.Name,
		"price":       pkg.Price,
		"network":     pkg.Network,
		"description": pkg.Description,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.Package{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports gorm's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
