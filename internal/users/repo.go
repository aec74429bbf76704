package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/repo"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
)

// Repository exposes customer account persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin matches the identifier against username or email.
func (r *Repository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("username = ? OR LOWER(email) = LOWER(?)", login, login).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Taken reports which of username and email already belong to an account other than exclude.
func (r *Repository) Taken(ctx context.Context, username, email string, exclude *uuid.UUID) (usernameTaken, emailTaken bool, err error) {
	check := func(column, value string) (bool, error) {
		if value == "" {
			return false, nil
		}
		q := r.DB(ctx).Model(&models.User{}).Where("LOWER("+column+") = LOWER(?)", value)
		if exclude != nil {
			q = q.Where("id <> ?", *exclude)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
	if usernameTaken, err = check("username", username); err != nil {
		return false, false, err
	}
	if emailTaken, err = check("email", email); err != nil {
		return false, false, err
	}
	return usernameTaken, emailTaken, nil
}

// UpdateProfile overwrites the editable profile columns.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, username, email, phone string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"username": username, "email": email, "phone": phone}).Error
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// UpdatePasswordByEmail stores a new password hash for the account owning email.
func (r *Repository) UpdatePasswordByEmail(ctx context.Context, email, hash string) (int64, error) {
	res := r.DB(ctx).
		Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Update("password_hash", hash)
	return res.RowsAffected, res.Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// List searches username, email and phone, newest accounts first.
func (r *Repository) List(ctx context.Context, search string, page pagination.Params) ([]models.User, int64, error) {
	q := r.DB(ctx).Model(&models.User{})
	if s := strings.ToLower(strings.TrimSpace(search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?)", like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Delete removes the accounts; their orders keep a NULL user_id.
func (r *Repository) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("id IN ?", ids).Delete(&models.User{})
	return res.RowsAffected, res.Error
}

// AdminRepository reads back-office accounts.
type AdminRepository struct {
	repo.Base
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{Base: repo.NewBase(db)}
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := r.DB(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.DB(ctx).
		Model(&models.AdminUser{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Create inserts a back-office account; usernames are unique.
func (r *AdminRepository) Create(ctx context.Context, username, email, passwordHash string) (*models.AdminUser, error) {
	admin := &models.AdminUser{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
	}
	if err := r.DB(ctx).Create(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}
