package users

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// ValidUsername allows 3 to 20 letters, digits or underscores.
func ValidUsername(v string) bool { return usernamePattern.MatchString(v) }

// ValidPhone allows an optional + and 10 to 15 digits.
func ValidPhone(v string) bool { return phonePattern.MatchString(v) }

// NormalizeEmail lowercases and trims.
func NormalizeEmail(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

// CreateUserDTO holds the data required to persist a new user.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	Phone        string
}

// ToModel converts the DTO into a GORM model.
func (dto CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		Phone:        dto.Phone,
	}
}

// UserDTO is the public account shape.
type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FromModel maps a user model to the public DTO.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		LastLogin: u.LastLoginAt,
		CreatedAt: u.CreatedAt,
	}
}

// ProfileInput carries editable profile fields.
type ProfileInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}
