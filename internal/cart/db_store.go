package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
)

var accumulateQuantity = fmt.Sprintf(
	"CASE WHEN cart_items.quantity + ? > %[1]d THEN %[1]d ELSE cart_items.quantity + ? END", MaxQuantity)

// DBStore keeps signed-in carts in cart_items, one row per (user, package).
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// Add inserts the line or, when the package is already in the cart, adds the
// quantity (capped at MaxQuantity) and replaces the recipients.
func (s *DBStore) Add(ctx context.Context, owner Owner, line Line) (string, error) {
	userID := *owner.UserID
	row := models.CartItem{
		ID:         uuid.New(),
		UserID:     userID,
		PackageID:  line.PackageID,
		Quantity:   line.Quantity,
		Recipients: line.Recipients,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "package_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr(accumulateQuantity, line.Quantity, line.Quantity),
			"recipients": line.Recipients,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&row).Error
	if err != nil {
		return "", err
	}

	var stored models.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND package_id = ?", userID, line.PackageID).
		First(&stored).Error; err != nil {
		return "", err
	}
	return stored.ID.String(), nil
}

// SetQuantity updates the line and trims recipients the new quantity no longer covers.
func (s *DBStore) SetQuantity(ctx context.Context, owner Owner, itemID string, quantity int) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return ErrItemNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CartItem
		if err := tx.Where("id = ? AND user_id = ?", id, *owner.UserID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		line := Line{Quantity: quantity, Recipients: row.Recipients}
		line.fitRecipients()
		return tx.Model(&models.CartItem{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"quantity":   quantity,
				"recipients": line.Recipients,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (s *DBStore) Remove(ctx context.Context, owner Owner, itemID string) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return ErrItemNotFound
	}
	res := s.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ? AND user_id = ?", id, *owner.UserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *DBStore) Clear(ctx context.Context, owner Owner) error {
	return s.ClearTx(ctx, s.db, *owner.UserID)
}

func (s *DBStore) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Delete(&models.CartItem{}, "user_id = ?", userID).Error
}

// Lines returns the newest line first.
func (s *DBStore) Lines(ctx context.Context, owner Owner) ([]Line, error) {
	var rows []models.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", *owner.UserID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(rows))
	for _, r := range rows {
		out = append(out, Line{
			ID:         r.ID.String(),
			PackageID:  r.PackageID,
			Quantity:   r.Quantity,
			Recipients: r.Recipients,
			AddedAt:    r.CreatedAt,
		})
	}
	return out, nil
}
