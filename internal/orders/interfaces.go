package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

// Repository defines persistence operations for materialized orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBatch(ctx context.Context, orders []models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, reference string) ([]models.Order, error)
	FailOpenByPaymentRef(ctx context.Context, reference string) (int64, error)
	KnownPackageIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)

	Track(ctx context.Context, criteria Criteria) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, filter AdminFilter, page pagination.Params) ([]Row, int64, error)

	UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.OrderStatus) (int64, error)
	Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
}
