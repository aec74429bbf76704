package auth

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
)

// ResetRepository keeps one active reset token per email.
type ResetRepository struct {
	repo.Base
}

func NewResetRepository(db *gorm.DB) *ResetRepository {
	return &ResetRepository{Base: repo.NewBase(db)}
}

// Upsert replaces any earlier token for the email.
func (r *ResetRepository) Upsert(ctx context.Context, email, token string, at time.Time) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "created_at"}),
		}).
		Create(&models.PasswordReset{Email: email, Token: token, CreatedAt: at}).Error
}

func (r *ResetRepository) FindByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	if err := r.DB(ctx).Where("token = ?", token).First(&reset).Error; err != nil {
		return nil, err
	}
	return &reset, nil
}

// Consume deletes the token for email and reports whether this call removed
// it. Only one caller can win for a given token.
func (r *ResetRepository) Consume(ctx context.Context, email, token string) (bool, error) {
	res := r.DB(ctx).Where("email = ? AND token = ?", email, token).Delete(&models.PasswordReset{})
	return res.RowsAffected == 1, res.Error
}

func (r *ResetRepository) Delete(ctx context.Context, email string) error {
	return r.DB(ctx).Where("email = ?", email).Delete(&models.PasswordReset{}).Error
}

// PruneBefore deletes tokens created before cutoff.
func (r *ResetRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).Where("created_at < ?", cutoff).Delete(&models.PasswordReset{})
	return res.RowsAffected, res.Error
}
