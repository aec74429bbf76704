package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dekorekillian57-star/spendo/internal/cart"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/metrics"
	"github.com/dekorekillian57-star/spendo/pkg/paystack"
	"github.com/dekorekillian57-star/spendo/pkg/security"
)

// ReferencePrefix starts every payment reference.
const ReferencePrefix = "REF-"

// Gateway opens hosted payment pages.
type Gateway interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
}

type cartReader interface {
	List(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
}

type intentWriter interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
}

type accountLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Request starts a checkout for the owner's current cart.
type Request struct {
	Owner cart.Owner
	Email string
}

// Redirect is where the shopper goes to pay.
type Redirect struct {
	AuthorizationURL string          `json:"authorization_url"`
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"-"`
	AmountMinor      int64           `json:"amount_minor"`
	Currency         string          `json:"currency"`
}

// Service is the checkout orchestrator.
type Service interface {
	InitiateCheckout(ctx context.Context, req Request) (*Redirect, error)
}

// ServiceParams wires the checkout orchestrator.
type ServiceParams struct {
	Cart        cartReader
	Intents     intentWriter
	Accounts    accountLoader
	Gateway     Gateway
	Logger      *logger.Logger
	Metrics     *metrics.PaymentMetrics
	Currency    string
	CallbackURL string
}

type service struct {
	cart        cartReader
	intents     intentWriter
	accounts    accountLoader
	gateway     Gateway
	logger      *logger.Logger
	metrics     *metrics.PaymentMetrics
	currency    string
	callbackURL string
	validate    *validator.Validate
	newRef      func() (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("payment intent writer required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account loader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "GHS"
	}
	return &service{
		cart:        params.Cart,
		intents:     params.Intents,
		accounts:    params.Accounts,
		gateway:     params.Gateway,
		logger:      params.Logger,
		metrics:     params.Metrics,
		currency:    currency,
		callbackURL: params.CallbackURL,
		validate:    validator.New(),
		newRef:      NewReference,
	}, nil
}

// NewReference returns REF- followed by 16 uppercase hex characters.
func NewReference() (string, error) {
	token, err := security.RandomHex(8)
	if err != nil {
		return "", err
	}
	return ReferencePrefix + strings.ToUpper(token), nil
}

// InitiateCheckout snapshots the cart once, asks the gateway for a hosted page
// and records the reference. No order rows are written here.
func (s *service) InitiateCheckout(ctx context.Context, req Request) (*Redirect, error) {
	email, err := s.contactEmail(ctx, req)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}

	current, err := s.cart.List(ctx, req.Owner)
	if err != nil {
		return nil, err
	}
	if current == nil || len(current.Items) == 0 {
		s.metrics.IncCheckout("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}

	lines := snapshot(current)
	total := lines.Total()
	amountMinor := paystack.ToMinor(total)
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must be greater than zero")
	}

	reference, err := s.newRef()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate payment reference")
	}
	if s.logger != nil {
		ctx = s.logger.WithPaymentRef(ctx, reference)
	}

	metadata := map[string]any{
		"line_count": len(lines),
		"cart_total": total.StringFixed(2),
	}
	if req.Owner.UserID != nil {
		metadata["user_id"] = req.Owner.UserID.String()
	}

	result, err := s.gateway.Initialize(ctx, paystack.InitializeParams{
		Email:       email,
		AmountMinor: amountMinor,
		Currency:    s.currency,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		s.metrics.IncCheckout("gateway_error")
		if s.logger != nil {
			s.logger.Error(ctx, "checkout gateway initialize failed", err)
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeDependency {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider rejected the checkout")
		}
		return nil, err
	}

	intent := &models.PaymentIntent{
		Reference:        reference,
		UserID:           req.Owner.UserID,
		Email:            email,
		AmountMinor:      amountMinor,
		Currency:         s.currency,
		Status:           enums.PaymentIntentInitialized,
		Lines:            lines,
		AuthorizationURL: result.AuthorizationURL,
	}
	if req.Owner.IsGuest() {
		session := req.Owner.SessionID
		intent.SessionID = &session
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		s.metrics.IncCheckout("persist_error")
		if s.logger != nil {
			s.logger.Error(ctx, "checkout intent not persisted after gateway initialize", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment reference")
	}

	s.metrics.IncCheckout("ok")
	if s.logger != nil {
		s.logger.Info(ctx, "checkout initialized")
	}
	return &Redirect{
		AuthorizationURL: result.AuthorizationURL,
		Reference:        reference,
		Amount:           total,
		AmountMinor:      amountMinor,
		Currency:         s.currency,
	}, nil
}

func (s *service) contactEmail(ctx context.Context, req Request) (string, error) {
	if req.Owner.UserID != nil {
		user, err := s.accounts.FindByID(ctx, *req.Owner.UserID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account not found")
		}
		return user.Email, nil
	}
	if strings.TrimSpace(req.Owner.SessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	email := strings.TrimSpace(req.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required for guest checkout").
			WithDetails(map[string]string{"email": "invalid"})
	}
	return email, nil
}

func snapshot(c *cart.Cart) models.CheckoutLines {
	lines := make(models.CheckoutLines, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, models.CheckoutLine{
			PackageID:   it.PackageID,
			PackageName: it.PackageName,
			PackageType: it.PackageType,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Recipients:  it.Recipients,
			LineTotal:   it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return lines
}
