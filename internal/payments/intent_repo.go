package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

// IntentRepository persists payment intents, the per-reference tracking rows.
type IntentRepository struct {
	repo.Base
}

func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *IntentRepository) WithTx(tx *gorm.DB) *IntentRepository {
	return &IntentRepository{Base: r.Rebind(tx)}
}

func (r *IntentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	return r.DB(ctx).Create(intent).Error
}

func (r *IntentRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.DB(ctx).Where("reference = ?", reference).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// LockByReference reads the intent with FOR UPDATE so concurrent confirmations
// of one reference serialize. sqlite has no row locks and skips the clause.
func (r *IntentRepository) LockByReference(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	q := r.ForUpdate(r.DB(ctx))
	var intent models.PaymentIntent
	if err := q.Where("reference = ?", reference).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *IntentRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.PaymentIntentSucceeded,
			"confirmed_at":   at,
			"failure_reason": nil,
		}).Error
}

// MarkFailed moves a non-succeeded intent to failed and reports whether a row changed.
func (r *IntentRepository) MarkFailed(ctx context.Context, reference, reason string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.PaymentIntent{}).
		Where("reference = ? AND status <> ?", reference, enums.PaymentIntentSucceeded).
		Updates(map[string]any{
			"status":         enums.PaymentIntentFailed,
			"failure_reason": reason,
		})
	return res.RowsAffected > 0, res.Error
}

// ExpireInitializedBefore flags abandoned checkouts and returns how many were expired.
func (r *IntentRepository) ExpireInitializedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.PaymentIntent{}).
		Where("status = ? AND created_at < ?", enums.PaymentIntentInitialized, cutoff).
		Updates(map[string]any{"status": enums.PaymentIntentExpired})
	return res.RowsAffected, res.Error
}
