package orders

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

// Row is an order joined with the owning account's username for admin listings.
type Row struct {
	models.Order `gorm:"embedded"`
	Username     *string `gorm:"column:username"`
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Rebind(tx)}
}

func (r *repository) CreateBatch(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	for i := range orders {
		if orders[i].ID == uuid.Nil {
			orders[i].ID = uuid.New()
		}
	}
	return r.DB(ctx).Create(&orders).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByPaymentRef returns every order of one checkout in line order.
func (r *repository) FindByPaymentRef(ctx context.Context, reference string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("payment_ref = ?", reference).
		Order("line_no ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FailOpenByPaymentRef moves non-terminal orders of the checkout to failed.
func (r *repository) FailOpenByPaymentRef(ctx context.Context, reference string) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("payment_ref = ? AND status NOT IN ?", reference, []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusFailed}).
		Update("status", enums.OrderStatusFailed)
	return res.RowsAffected, res.Error
}

// KnownPackageIDs reports which package ids still exist; deleted packages are
// recorded on orders by name only.
func (r *repository) KnownPackageIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	known := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return known, nil
	}
	var found []uuid.UUID
	if err := r.DB(ctx).Model(&models.Package{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		known[id] = true
	}
	return known, nil
}

// Track returns the newest order matching any of the supplied criteria.
func (r *repository) Track(ctx context.Context, criteria Criteria) (*models.Order, error) {
	var (
		conds []string
		args  []any
	)
	if criteria.OrderCode != "" {
		conds = append(conds, "order_code = ?")
		args = append(args, criteria.OrderCode)
	}
	if criteria.PaymentRef != "" {
		conds = append(conds, "payment_ref = ?")
		args = append(args, criteria.PaymentRef)
	}
	if criteria.Phone != "" {
		cond, arg, err := r.recipientMatch("phone", criteria.Phone)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if criteria.SmartCard != "" {
		cond, arg, err := r.recipientMatch("smart_card", criteria.SmartCard)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if len(conds) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var order models.Order
	err := r.DB(ctx).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Order("created_at DESC").
		Order("line_no ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// recipientMatch asks whether any recipient in the list carries key == value.
func (r *repository) recipientMatch(key, value string) (string, any, error) {
	if r.Postgres() {
		needle, err := json.Marshal([]map[string]string{{key: value}})
		if err != nil {
			return "", nil, err
		}
		return "recipients @> ?::jsonb", string(needle), nil
	}
	return "EXISTS (SELECT 1 FROM json_each(orders.recipients) WHERE json_extract(json_each.value, '$." + key + "') = ?)", value, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("line_no ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) List(ctx context.Context, filter AdminFilter, page pagination.Params) ([]Row, int64, error) {
	q := r.DB(ctx).
		Table("orders").
		Joins("LEFT JOIN users ON users.id = orders.user_id")
	if filter.Status != nil {
		q = q.Where("orders.status = ?", *filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		recipients := "orders.recipients"
		if r.Postgres() {
			recipients = "orders.recipients::text"
		}
		q = q.Where(
			"(LOWER(orders.order_code) LIKE ? OR LOWER(orders.package_name) LIKE ? OR LOWER(COALESCE(users.username, '')) LIKE ? OR LOWER("+recipients+") LIKE ?)",
			like, like, like, like,
		)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Row
	err := q.
		Select("orders.*, users.username AS username").
		Order("orders.created_at DESC").
		Order("orders.line_no ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.OrderStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id IN ?", ids).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("id IN ?", ids).Delete(&models.Order{})
	return res.RowsAffected, res.Error
}
