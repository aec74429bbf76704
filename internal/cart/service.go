package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// MaxQuantity bounds a single cart line.
const MaxQuantity = 100

type packageLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Package, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Package, error)
}

// AddItemInput is one add-to-cart request.
type AddItemInput struct {
	PackageID  uuid.UUID
	Quantity   int
	Recipients json.RawMessage
}

// Item is a cart line joined with the live catalog.
type Item struct {
	ID          string
	PackageID   uuid.UUID
	PackageName string
	PackageType enums.PackageType
	Network     *string
	UnitPrice   decimal.Decimal
	Quantity    int
	Recipients  types.Recipients
	LineTotal   decimal.Decimal
	AddedAt     time.Time
}

// Cart is the priced view of an owner's lines. Prices are read when the view is built.
type Cart struct {
	Items []Item
	Total decimal.Decimal
}

// Count sums quantities.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Service is the cart aggregator.
type Service interface {
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (string, error)
	UpdateQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error
	RemoveItem(ctx context.Context, owner Owner, itemID string) error
	Clear(ctx context.Context, owner Owner) error
	ClearTx(ctx context.Context, tx *gorm.DB, owner Owner) error
	List(ctx context.Context, owner Owner) (*Cart, error)
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) (int, error)
}

type service struct {
	users    LineStore
	userTx   TxClearer
	guests   LineStore
	packages packageLoader
	logger   *logger.Logger
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Users    *DBStore
	Guests   LineStore
	Packages packageLoader
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user cart store required")
	}
	if params.Guests == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	if params.Packages == nil {
		return nil, fmt.Errorf("package loader required")
	}
	return &service{
		users:    params.Users,
		userTx:   params.Users,
		guests:   params.Guests,
		packages: params.Packages,
		logger:   params.Logger,
	}, nil
}

func (s *service) storeFor(owner Owner) (LineStore, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if owner.IsGuest() {
		return s.guests, nil
	}
	return s.users, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (string, error) {
	store, err := s.storeFor(owner)
	if err != nil {
		return "", err
	}
	if input.PackageID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "package_id is required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 1 || input.Quantity > MaxQuantity {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", MaxQuantity)
	}

	pkg, err := s.packages.Get(ctx, input.PackageID)
	if err != nil {
		return "", err
	}

	recipients, err := types.DecodeRecipients(pkg.Type, input.Recipients)
	if err != nil {
		return "", recipientsError(err)
	}
	if len(recipients) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required").
			WithDetails(map[string]string{"recipients": "required"})
	}
	if len(recipients) > input.Quantity {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "more recipients than quantity").
			WithDetails(map[string]string{"recipients": fmt.Sprintf("at most %d", input.Quantity)})
	}

	id, err := store.Add(ctx, owner, Line{
		PackageID:  pkg.ID,
		Quantity:   input.Quantity,
		Recipients: recipients,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return id, nil
}

// UpdateQuantity sets the line quantity; anything below 1 removes the line.
func (s *service) UpdateQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error {
	store, err := s.storeFor(owner)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return s.RemoveItem(ctx, owner, itemID)
	}
	if quantity > MaxQuantity {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", MaxQuantity)
	}
	return mapStoreError(store.SetQuantity(ctx, owner, itemID, quantity), "update cart item")
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID string) error {
	store, err := s.storeFor(owner)
	if err != nil {
		return err
	}
	return mapStoreError(store.Remove(ctx, owner, itemID), "remove cart item")
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	store, err := s.storeFor(owner)
	if err != nil {
		return err
	}
	return mapStoreError(store.Clear(ctx, owner), "clear cart")
}

// ClearTx empties a user cart inside tx. Guest carts live outside the database
// and are left to Clear once the transaction has committed.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, owner Owner) error {
	if owner.IsGuest() {
		return nil
	}
	return s.userTx.ClearTx(ctx, tx, *owner.UserID)
}

func (s *service) List(ctx context.Context, owner Owner) (*Cart, error) {
	store, err := s.storeFor(owner)
	if err != nil {
		return nil, err
	}
	lines, err := store.Lines(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.PackageID)
	}
	pkgs, err := s.packages.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := &Cart{Items: make([]Item, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		pkg, ok := pkgs[l.PackageID]
		if !ok {
			continue
		}
		lineTotal := pkg.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		cart.Items = append(cart.Items, Item{
			ID:          l.ID,
			PackageID:   pkg.ID,
			PackageName: pkg.Name,
			PackageType: pkg.Type,
			Network:     pkg.Network,
			UnitPrice:   pkg.Price,
			Quantity:    l.Quantity,
			Recipients:  l.Recipients,
			LineTotal:   lineTotal,
			AddedAt:     l.AddedAt,
		})
		cart.Total = cart.Total.Add(lineTotal)
	}
	return cart, nil
}

// MergeGuest moves a guest cart into the user's cart after login using the
// signed-in duplicate-add rules, then clears the guest cart.
func (s *service) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) (int, error) {
	if sessionID == "" || userID == uuid.Nil {
		return 0, nil
	}
	guest := GuestOwner(sessionID)
	lines, err := s.guests.Lines(ctx, guest)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest cart")
	}
	if len(lines) == 0 {
		return 0, nil
	}
	user := UserOwner(userID)
	merged := 0
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if _, err := s.users.Add(ctx, user, line); err != nil {
			if s.logger != nil {
				s.logger.Warn(s.logger.WithField(ctx, "package_id", line.PackageID.String()), "guest cart line not merged: "+err.Error())
			}
			continue
		}
		merged++
	}
	if err := s.guests.Clear(ctx, guest); err != nil {
		return merged, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear guest cart")
	}
	return merged, nil
}

func mapStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrItemNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func recipientsError(err error) error {
	var recErr *types.RecipientError
	if errors.As(err, &recErr) {
		field := "recipients"
		if recErr.Index >= 0 {
			field = fmt.Sprintf("recipients[%d]", recErr.Index)
			if recErr.Field != "" {
				field += "." + recErr.Field
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid recipients").
			WithDetails(map[string]string{field: recErr.Reason})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipients")
}
