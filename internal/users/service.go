package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/pagination"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

// Service covers the customer profile and admin account management.
type Service interface {
	Profile(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error

	List(ctx context.Context, search string, page pagination.Params) (pagination.Page[UserDTO], error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
}

func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.load(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	email := NormalizeEmail(input.Email)
	phone := strings.TrimSpace(input.Phone)
	if err := ValidateAccountFields(username, email, phone); err != nil {
		return nil, err
	}

	usernameTaken, emailTaken, err := s.repo.Taken(ctx, username, email, &id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check profile uniqueness")
	}
	if err := TakenError(usernameTaken, emailTaken); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, id, username, email, phone); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.load(ctx, id)
}

func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	if err := security.CheckPasswordLength(next, s.passwordCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(next, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

func (s *service) List(ctx context.Context, search string, page pagination.Params) (pagination.Page[UserDTO], error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, search, page)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, []uuid.UUID{id})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "select at least one user")
	}
	affected, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete users")
	}
	return affected, nil
}

// ValidateAccountFields checks the username, email and phone formats.
func ValidateAccountFields(username, email, phone string) error {
	details := map[string]string{}
	if !ValidUsername(username) {
		details["username"] = "3-20 letters, digits or underscores"
	}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "invalid email"
	}
	if !ValidPhone(phone) {
		details["phone"] = "10-15 digits, optional leading +"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid account details").WithDetails(details)
	}
	return nil
}

// TakenError maps uniqueness flags to a conflict error, or nil.
func TakenError(usernameTaken, emailTaken bool) error {
	switch {
	case usernameTaken && emailTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "username and email already in use")
	case usernameTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	case emailTaken:
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	return nil
}
