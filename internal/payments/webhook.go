package payments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/paystack"
)

// WebhookDedupeTTL bounds how long a delivered event is remembered.
const WebhookDedupeTTL = 24 * time.Hour

// EventDeduper remembers webhook deliveries; redis backs it in production.
type EventDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(event, reference string) string
}

// HandleWebhook authenticates a gateway delivery and routes it. Signature and
// payload problems are returned; anything the gateway should stop retrying is
// acknowledged with a nil error.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	evt, err := paystack.ParseEvent(s.webhookSecret, body, signature)
	if err != nil {
		result := "invalid_payload"
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			result = "bad_signature"
		}
		s.metrics.IncWebhook("unknown", result)
		if s.logger != nil {
			s.logger.Warn(ctx, "webhook rejected: "+err.Error())
		}
		return err
	}

	reference := evt.Reference()
	if s.logger != nil {
		ctx = s.logger.WithFields(s.logger.WithPaymentRef(ctx, reference), map[string]any{"event": evt.Event})
	}
	if reference == "" {
		s.metrics.IncWebhook(evt.Event, "invalid_payload")
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload has no reference")
	}
	if evt.Event != paystack.EventChargeSuccess && !evt.IsFailure() {
		s.metrics.IncWebhook(evt.Event, "ignored")
		if s.logger != nil {
			s.logger.Info(ctx, "webhook event ignored")
		}
		return nil
	}

	key, fresh := s.claim(ctx, evt.Event, reference)
	if !fresh {
		s.metrics.IncWebhook(evt.Event, "duplicate")
		if s.logger != nil {
			s.logger.Info(ctx, "duplicate webhook delivery skipped")
		}
		return nil
	}

	if evt.IsFailure() {
		err = s.handleFailureEvent(ctx, reference, evt.Event)
	} else {
		_, err = s.ConfirmByReference(ctx, reference, SourceWebhook)
	}

	switch {
	case err == nil:
		s.metrics.IncWebhook(evt.Event, "ok")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed):
		s.metrics.IncWebhook(evt.Event, "acknowledged")
		if s.logger != nil {
			s.logger.Warn(ctx, "webhook acknowledged without orders: "+err.Error())
		}
		return nil
	default:
		s.release(ctx, key)
		s.metrics.IncWebhook(evt.Event, "error")
		return err
	}
}

// handleFailureEvent only fails a reference the gateway still reports as
// unpaid. Paid references and events contradicted by verification are left alone.
func (s *service) handleFailureEvent(ctx context.Context, reference, event string) error {
	intent, err := s.intents.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment reference")
	}
	if intent.Status == enums.PaymentIntentSucceeded {
		if s.logger != nil {
			s.logger.Info(ctx, "failure event for a paid reference ignored")
		}
		return nil
	}

	reason := "gateway reported " + event
	txn, err := s.gateway.Verify(ctx, reference)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed) {
		return verifyError(err)
	}
	if err == nil {
		mismatch := s.mismatch(intent, txn)
		if mismatch == "" {
			if s.logger != nil {
				s.logger.Warn(ctx, "failure event contradicted by verification, ignored")
			}
			return nil
		}
		reason += ": " + mismatch
	}
	return s.MarkFailed(ctx, reference, reason)
}

// claim returns false when the event was already handled. Redis errors fail
// open; the database guard still prevents duplicate orders.
func (s *service) claim(ctx context.Context, event, reference string) (string, bool) {
	if s.dedupe == nil {
		return "", true
	}
	key := s.dedupe.WebhookEventKey(event, reference)
	ok, err := s.dedupe.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339), WebhookDedupeTTL)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "webhook dedupe unavailable: "+err.Error())
		}
		return "", true
	}
	return key, ok
}

// release forgets a claim so the gateway's retry is processed.
func (s *service) release(ctx context.Context, key string) {
	if s.dedupe == nil || key == "" {
		return
	}
	if err := s.dedupe.Del(ctx, key); err != nil && s.logger != nil {
		s.logger.Warn(ctx, "release webhook claim: "+err.Error())
	}
}
