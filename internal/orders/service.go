package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/events"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

const trackNotFoundMessage = "no order matches the details provided"

// Service covers tracking, customer history and admin order management.
type Service interface {
	Track(ctx context.Context, criteria Criteria) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)

	List(ctx context.Context, status, search string, page pagination.Params) (pagination.Page[OrderDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
	BulkSetStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo      Repository
	Publisher events.Publisher
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		repo:      params.Repo,
		publisher: publisher,
		logger:    params.Logger,
		now:       time.Now,
	}, nil
}

// Track never distinguishes a miss from an odd-looking value; only an empty
// request is a validation error.
func (s *service) Track(ctx context.Context, criteria Criteria) (*models.Order, error) {
	criteria = criteria.Normalize()
	if criteria.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provide an order id, phone number, smart card number or transaction reference")
	}
	order, err := s.repo.Track(ctx, criteria)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, trackNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "track order")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	orders, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return orders, nil
}

func (s *service) List(ctx context.Context, status, search string, page pagination.Params) (pagination.Page[OrderDTO], error) {
	filter := AdminFilter{Search: search}
	if status != "" {
		parsed, err := parseStatus(status)
		if err != nil {
			return pagination.Page[OrderDTO]{}, err
		}
		filter.Status = &parsed
	}
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, newRowDTO(row))
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// SetStatus accepts any of the four statuses from any current status.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	next, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.UpdateStatus(ctx, []uuid.UUID{id}, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStatusChanged(ctx, []models.Order{*order})
	return order, nil
}

func (s *service) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error) {
	next, err := parseStatus(status)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "select at least one order")
	}
	affected, err := s.repo.UpdateStatus(ctx, ids, next)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order statuses")
	}
	changed := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.repo.FindByID(ctx, id)
		if err != nil {
			continue
		}
		changed = append(changed, *order)
	}
	s.publishStatusChanged(ctx, changed)
	return affected, nil
}

// Delete is a hard delete regardless of status.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, []uuid.UUID{id})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "select at least one order")
	}
	affected, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete orders")
	}
	return affected, nil
}

// publishStatusChanged emits one event per checkout; failures are logged only.
func (s *service) publishStatusChanged(ctx context.Context, changed []models.Order) {
	byRef := map[string][]models.Order{}
	for _, o := range changed {
		byRef[o.PaymentRef] = append(byRef[o.PaymentRef], o)
	}
	refs := make([]string, 0, len(byRef))
	for ref := range byRef {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		group := byRef[ref]
		event := events.OrderEvent{
			ID:         uuid.New(),
			Type:       events.TypeOrderStatusChanged,
			PaymentRef: ref,
			UserID:     group[0].UserID,
			Email:      group[0].CustomerEmail,
			Orders:     EventLines(group),
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.PublishOrderEvent(ctx, event); err != nil && s.logger != nil {
			s.logger.Error(s.logger.WithPaymentRef(ctx, ref), "publish order status change failed", err)
		}
	}
}

// EventLines converts orders to event payload lines.
func EventLines(orders []models.Order) []events.OrderLine {
	lines := make([]events.OrderLine, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, events.OrderLine{
			OrderID:     o.OrderCode,
			PackageType: o.PackageType.String(),
			PackageName: o.PackageName,
			Quantity:    o.Quantity,
			TotalPrice:  o.TotalPrice.StringFixed(2),
			Status:      o.Status.String(),
		})
	}
	return lines
}

func parseStatus(value string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be one of pending, processing, completed, failed").
			WithDetails(map[string]string{"status": value})
	}
	return status, nil
}
