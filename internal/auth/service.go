package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/users"
	pkgAuth "github.com/dekorekillian57-star/spendo/pkg/auth"
	"github.com/dekorekillian57-star/spendo/pkg/auth/session"
	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type sessionManager interface {
	Open(ctx context.Context, accessID, userID string) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

type cartMerger interface {
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) (int, error)
}

type resetMailer interface {
	PasswordReset(ctx context.Context, email, token string, validFor time.Duration) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          *users.Repository
	Admins         *users.AdminRepository
	CustomerLimits *Throttle
	AdminLimits    *Throttle
	Resets         *ResetRepository
	SessionManager sessionManager
	Cart           cartMerger
	Mailer         resetMailer
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetTTL       time.Duration
}

type service struct {
	users       *users.Repository
	admins      *users.AdminRepository
	customers   *Throttle
	adminLimits *Throttle
	resets      *ResetRepository
	session     sessionManager
	cart        cartMerger
	mailer      resetMailer
	logger      *logger.Logger
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	resetTTL    time.Duration
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.CustomerLimits == nil || params.AdminLimits == nil {
		return nil, fmt.Errorf("login throttles are required")
	}
	if params.Resets == nil {
		return nil, fmt.Errorf("reset repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	ttl := params.ResetTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		users:       params.Users,
		admins:      params.Admins,
		customers:   params.CustomerLimits,
		adminLimits: params.AdminLimits,
		resets:      params.Resets,
		session:     params.SessionManager,
		cart:        params.Cart,
		mailer:      params.Mailer,
		logger:      params.Logger,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		resetTTL:    ttl,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := users.NormalizeEmail(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if err := users.ValidateAccountFields(username, email, phone); err != nil {
		return nil, err
	}
	if err := security.CheckPasswordLength(req.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	usernameTaken, emailTaken, err := s.users.Taken(ctx, username, email, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check account uniqueness")
	}
	if err := users.TakenError(usernameTaken, emailTaken); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.customers.Check(ctx, req.IP); err != nil {
		return nil, err
	}
	user, err := s.authenticate(ctx, req)
	if recordErr := s.customers.Record(ctx, req.IP, err == nil); recordErr != nil && s.logger != nil {
		s.logger.Error(ctx, "record login attempt", recordErr)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	token, expires, err := s.issue(ctx, now, user.ID, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     enums.RoleCustomer,
	})
	if err != nil {
		return nil, err
	}

	merged := 0
	if s.cart != nil && strings.TrimSpace(req.SessionID) != "" {
		merged, err = s.cart.MergeGuest(ctx, req.SessionID, user.ID)
		if err != nil && s.logger != nil {
			s.logger.Error(ctx, "merge guest cart on login", err)
		}
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        users.FromModel(user),
		MergedItems: merged,
	}, nil
}

func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error) {
	if err := s.adminLimits.Check(ctx, req.IP); err != nil {
		return nil, err
	}
	admin, err := s.authenticateAdmin(ctx, req)
	if recordErr := s.adminLimits.Record(ctx, req.IP, err == nil); recordErr != nil && s.logger != nil {
		s.logger.Error(ctx, "record admin login attempt", recordErr)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	token, expires, err := s.issue(ctx, now, admin.ID, pkgAuth.AccessTokenPayload{
		UserID:   admin.ID,
		Username: admin.Username,
		Email:    admin.Email,
		Role:     enums.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{
		AccessToken: token,
		ExpiresAt:   expires,
		Admin:       AdminSummary{ID: admin.ID, Username: admin.Username, Email: admin.Email},
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issue(ctx context.Context, now time.Time, subject uuid.UUID, payload pkgAuth.AccessTokenPayload) (string, time.Time, error) {
	accessID, err := s.session.Open(ctx, session.NewAccessID(), subject.String())
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}
	payload.JTI = accessID
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute), nil
}

func (s *service) authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "login and password are required")
	}
	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if ok, err := security.VerifyPassword(req.Password, user.PasswordHash); err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) authenticateAdmin(ctx context.Context, req LoginRequest) (*models.AdminUser, error) {
	username := strings.TrimSpace(req.Login)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}
	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if ok, err := security.VerifyPassword(req.Password, admin.PasswordHash); err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return admin, nil
}
