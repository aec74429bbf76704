package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/internal/cart"
	"github.com/dekorekillian57-star/spendo/internal/notifications"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/pkg/db"
	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/events"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/metrics"
	"github.com/dekorekillian57-star/spendo/pkg/paystack"
)

// Confirmation sources.
const (
	SourceCallback = "callback"
	SourceWebhook  = "webhook"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Verifier confirms a transaction with the gateway.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

type cartClearer interface {
	Clear(ctx context.Context, owner cart.Owner) error
	ClearTx(ctx context.Context, tx *gorm.DB, owner cart.Owner) error
}

// Result is the outcome of a successful confirmation.
type Result struct {
	Reference        string
	Orders           []models.Order
	AlreadyProcessed bool
}

// Service materializes paid checkouts into orders.
type Service interface {
	ConfirmByReference(ctx context.Context, reference, source string) (*Result, error)
	MarkFailed(ctx context.Context, reference, reason string) error
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// ServiceParams wires the confirmation handler.
type ServiceParams struct {
	DB            txRunner
	Intents       *IntentRepository
	Orders        orders.Repository
	Cart          cartClearer
	Gateway       Verifier
	Notifier      notifications.Service
	Publisher     events.Publisher
	Dedupe        EventDeduper
	Logger        *logger.Logger
	Metrics       *metrics.PaymentMetrics
	Currency      string
	WebhookSecret string
}

type service struct {
	tx            txRunner
	intents       *IntentRepository
	orders        orders.Repository
	cart          cartClearer
	gateway       Verifier
	notifier      notifications.Service
	publisher     events.Publisher
	dedupe        EventDeduper
	logger        *logger.Logger
	metrics       *metrics.PaymentMetrics
	currency      string
	webhookSecret string
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("payment intent repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "GHS"
	}
	return &service{
		tx:            params.DB,
		intents:       params.Intents,
		orders:        params.Orders,
		cart:          params.Cart,
		gateway:       params.Gateway,
		notifier:      params.Notifier,
		publisher:     publisher,
		dedupe:        params.Dedupe,
		logger:        params.Logger,
		metrics:       params.Metrics,
		currency:      currency,
		webhookSecret: params.WebhookSecret,
		now:           time.Now,
	}, nil
}

// ConfirmByReference verifies the payment with the gateway and writes exactly
// one set of orders per reference, however many times it is called.
func (s *service) ConfirmByReference(ctx context.Context, reference, source string) (*Result, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if s.logger != nil {
		ctx = s.logger.WithFields(s.logger.WithPaymentRef(ctx, reference), map[string]any{"source": source})
	}

	intent, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment reference")
	}
	if intent.Status == enums.PaymentIntentSucceeded {
		return s.alreadyProcessed(ctx, reference, source)
	}

	txn, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed) {
			return nil, s.failVerified(ctx, reference, source, "gateway declined verification")
		}
		s.metrics.IncConfirmation(source, metrics.OutcomeError)
		if s.logger != nil {
			s.logger.Error(ctx, "payment verification failed", err)
		}
		return nil, verifyError(err)
	}
	if reason := s.mismatch(intent, txn); reason != "" {
		return nil, s.failVerified(ctx, reference, source, reason)
	}

	var (
		created          []models.Order
		alreadyProcessed bool
		locked           *models.PaymentIntent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		locked, err = s.intents.WithTx(tx).LockByReference(ctx, reference)
		if err != nil {
			return err
		}
		if locked.Status == enums.PaymentIntentSucceeded {
			alreadyProcessed = true
			return nil
		}

		created, err = s.buildOrders(ctx, tx, locked)
		if err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).CreateBatch(ctx, created); err != nil {
			return err
		}
		if err := s.intents.WithTx(tx).MarkSucceeded(ctx, locked.ID, s.now().UTC()); err != nil {
			return err
		}
		if locked.UserID != nil {
			return s.cart.ClearTx(ctx, tx, cart.UserOwner(*locked.UserID))
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.alreadyProcessed(ctx, reference, source)
		}
		s.metrics.IncConfirmation(source, metrics.OutcomeError)
		if s.logger != nil {
			s.logger.Error(ctx, "order materialization rolled back", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record paid orders")
	}
	if alreadyProcessed {
		return s.alreadyProcessed(ctx, reference, source)
	}

	s.afterCommit(ctx, locked, created)
	s.metrics.IncConfirmation(source, metrics.OutcomeMaterialized)
	if s.logger != nil {
		s.logger.Info(ctx, fmt.Sprintf("payment confirmed, %d orders created", len(created)))
	}
	return &Result{Reference: reference, Orders: created}, nil
}

// failVerified records a failure the gateway confirmed and returns the payer-facing error.
func (s *service) failVerified(ctx context.Context, reference, source, reason string) error {
	if err := s.MarkFailed(ctx, reference, reason); err != nil && s.logger != nil {
		s.logger.Error(ctx, "record failed payment", err)
	}
	s.metrics.IncConfirmation(source, metrics.OutcomeFailed)
	return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment was not successful").
		WithDetails(map[string]string{"reference": reference, "reason": reason})
}

// verifyError keeps definitive gateway answers and makes everything else a
// retryable dependency failure.
func verifyError(err error) error {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeDependency):
		return err
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment could not be verified, please try again")
	}
}

func (s *service) mismatch(intent *models.PaymentIntent, txn *paystack.Transaction) string {
	switch {
	case txn == nil:
		return "empty verification response"
	case !txn.Succeeded():
		if txn.GatewayResponse != "" {
			return fmt.Sprintf("status %s: %s", txn.Status, txn.GatewayResponse)
		}
		return "status " + txn.Status
	case txn.Reference != "" && txn.Reference != intent.Reference:
		return "reference mismatch"
	case txn.Amount != intent.AmountMinor:
		return fmt.Sprintf("amount mismatch: expected %d got %d", intent.AmountMinor, txn.Amount)
	case !strings.EqualFold(txn.Currency, intent.Currency):
		return fmt.Sprintf("currency mismatch: expected %s got %s", intent.Currency, txn.Currency)
	}
	return ""
}

func (s *service) buildOrders(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) ([]models.Order, error) {
	ids := make([]uuid.UUID, 0, len(intent.Lines))
	for _, line := range intent.Lines {
		ids = append(ids, line.PackageID)
	}
	known, err := s.orders.WithTx(tx).KnownPackageIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	out := make([]models.Order, 0, len(intent.Lines))
	for i, line := range intent.Lines {
		code, err := orders.NewCode(now)
		if err != nil {
			return nil, err
		}
		order := models.Order{
			ID:            uuid.New(),
			UserID:        intent.UserID,
			OrderCode:     code,
			PackageType:   line.PackageType,
			PackageName:   line.PackageName,
			Quantity:      line.Quantity,
			Recipients:    line.Recipients,
			TotalPrice:    line.LineTotal,
			Status:        enums.OrderStatusProcessing,
			PaymentRef:    intent.Reference,
			LineNo:        i + 1,
			CustomerEmail: intent.Email,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if known[line.PackageID] {
			pkgID := line.PackageID
			order.PackageID = &pkgID
		}
		out = append(out, order)
	}
	return out, nil
}

func (s *service) alreadyProcessed(ctx context.Context, reference, source string) (*Result, error) {
	existing, err := s.orders.FindByPaymentRef(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load orders for reference")
	}
	s.metrics.IncConfirmation(source, metrics.OutcomeAlreadyProcessed)
	if s.logger != nil {
		s.logger.Info(ctx, "payment already processed")
	}
	return &Result{Reference: reference, Orders: existing, AlreadyProcessed: true}, nil
}

// afterCommit runs best-effort side effects; none of them can undo the orders.
func (s *service) afterCommit(ctx context.Context, intent *models.PaymentIntent, created []models.Order) {
	if intent.UserID == nil && intent.SessionID != nil {
		if err := s.cart.Clear(ctx, cart.GuestOwner(*intent.SessionID)); err != nil && s.logger != nil {
			s.logger.Error(ctx, "clear guest cart after payment", err)
		}
	}

	if s.notifier != nil {
		err := s.notifier.OrderConfirmed(ctx, notifications.OrderConfirmation{
			Reference: intent.Reference,
			Email:     intent.Email,
			Currency:  intent.Currency,
			Orders:    created,
		})
		if err != nil && s.logger != nil {
			s.logger.Error(ctx, "order confirmation email failed", err)
		}
	}

	event := events.OrderEvent{
		ID:         uuid.New(),
		Type:       events.TypeOrderConfirmed,
		PaymentRef: intent.Reference,
		UserID:     intent.UserID,
		Email:      intent.Email,
		Amount:     paystack.FromMinor(intent.AmountMinor).StringFixed(2),
		Currency:   intent.Currency,
		Orders:     orders.EventLines(created),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil && s.logger != nil {
		s.logger.Error(ctx, "publish order confirmed event failed", err)
	}
}

// MarkFailed records a definitive failure: the intent (unless already paid)
// and any non-terminal orders for the reference move to failed.
func (s *service) MarkFailed(ctx context.Context, reference, reason string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	var failedOrders int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.intents.WithTx(tx).MarkFailed(ctx, reference, reason); err != nil {
			return err
		}
		var err error
		failedOrders, err = s.orders.WithTx(tx).FailOpenByPaymentRef(ctx, reference)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment failure")
	}
	if s.logger != nil {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{"reason": reason, "orders_failed": failedOrders}), "payment marked failed")
	}
	return nil
}
