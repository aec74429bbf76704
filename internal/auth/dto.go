package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/internal/users"
)

// RegisterRequest is the customer sign-up payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest accepts a username or email for customers and a username for admins.
type LoginRequest struct {
	Login     string `json:"login" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	SessionID string `json:"-"`
}

// LoginResponse is returned after a successful customer login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
	MergedItems int            `json:"merged_cart_items"`
}

// AdminSummary is the public admin account shape.
type AdminSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// AdminLoginResponse is returned after a successful admin login.
type AdminLoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Admin       AdminSummary `json:"admin"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}
