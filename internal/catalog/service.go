package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

type store interface {
	List(ctx context.Context, filter Filter) ([]models.Package, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Package, error)
	Create(ctx context.Context, pkg *models.Package) error
	Update(ctx context.Context, pkg *models.Package) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service is the catalog store: public reads and admin mutations.
type Service interface {
	List(ctx context.Context, pkgType, network string) ([]models.Package, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Package, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Package, error)
	Create(ctx context.Context, input PackageInput) (*models.Package, error)
	Update(ctx context.Context, id uuid.UUID, input PackageInput) (*models.Package, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo store
}

func NewService(repo store) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, pkgType, network string) ([]models.Package, error) {
	filter := Filter{Network: strings.TrimSpace(network)}
	if t := strings.TrimSpace(pkgType); t != "" {
		parsed, err := enums.ParsePackageType(t)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid package type")
		}
		filter.Type = &parsed
	}
	pkgs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list packages")
	}
	return pkgs, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load package")
	}
	return pkg, nil
}

func (s *service) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Package, error) {
	pkgs, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load packages")
	}
	return pkgs, nil
}

func (s *service) Create(ctx context.Context, input PackageInput) (*models.Package, error) {
	pkg, err := packageFromInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create package")
	}
	return pkg, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input PackageInput) (*models.Package, error) {
	pkg, err := packageFromInput(input)
	if err != nil {
		return nil, err
	}
	pkg.ID = id
	if err := s.repo.Update(ctx, pkg); err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update package")
	}
	return s.Get(ctx, id)
}

// Delete removes the package; cart rows cascade and orders keep their name snapshot.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete package")
	}
	return nil
}

func packageFromInput(input PackageInput) (*models.Package, error) {
	pkgType, err := enums.ParsePackageType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid package type").
			WithDetails(map[string]string{"type": "must be one of data, airtime, cable, result_checker, afa"})
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package name is required").
			WithDetails(map[string]string{"name": "required"})
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero").
			WithDetails(map[string]string{"price": "must be > 0"})
	}
	return &models.Package{
		Type:        pkgType,
		Name:        name,
		Price:       input.Price.Round(2),
		Network:     trimmedOrNil(input.Network),
		Description: trimmedOrNil(input.Description),
	}, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
