package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/users"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

const invalidResetMessage = "reset link is invalid or has expired"

// ForgotPassword answers the same way whether or not the email has an account.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := security.RandomHex(50)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.resets.Upsert(ctx, email, token, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}
	if s.mailer != nil {
		if err := s.mailer.PasswordReset(ctx, email, token, s.resetTTL); err != nil && s.logger != nil {
			s.logger.Error(ctx, "send password reset email", err)
		}
	}
	return nil
}

// ResetPassword consumes a live token and sets the new password.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}
	if err := security.CheckPasswordLength(req.Password, s.passwordCfg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	reset, err := s.resets.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}
	if s.now().UTC().Sub(reset.CreatedAt) > s.resetTTL {
		_ = s.resets.Delete(ctx, reset.Email)
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	consumed, err := s.resets.Consume(ctx, reset.Email, token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume reset token")
	}
	if !consumed {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidResetMessage)
	}
	if _, err := s.users.UpdatePasswordByEmail(ctx, reset.Email, hash); err != nil {
		if restoreErr := s.resets.Upsert(ctx, reset.Email, token, reset.CreatedAt); restoreErr != nil && s.logger != nil {
			s.logger.Error(ctx, "restore reset token", restoreErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}
