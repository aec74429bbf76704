package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/dekorekillian57-star/spendo/api/responses"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	"github.com/dekorekillian57-star/spendo/internal/payments"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

const (
	paystackSignatureHeader = "x-paystack-signature"
	maxWebhookBytes         = 1 << 20
)

type paymentConfirmationResponse struct {
	Reference        string            `json:"reference"`
	AlreadyProcessed bool              `json:"already_processed"`
	Orders           []orders.OrderDTO `json:"orders"`
}

// PaymentCallback handles the shopper's redirect back from Paystack. The
// reference is verified server side before any order is written.
func PaymentCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		query := r.URL.Query()
		reference := strings.TrimSpace(query.Get("reference"))
		if reference == "" {
			reference = strings.TrimSpace(query.Get("trxref"))
		}

		result, err := svc.ConfirmByReference(r.Context(), reference, payments.SourceCallback)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentConfirmationResponse{
			Reference:        result.Reference,
			AlreadyProcessed: result.AlreadyProcessed,
			Orders:           orders.NewOrderDTOs(result.Orders),
		})
	}
}

// PaystackWebhook passes the raw body through untouched so the HMAC can be checked.
func PaystackWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}
		if err := svc.HandleWebhook(r.Context(), body, r.Header.Get(paystackSignatureHeader)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
