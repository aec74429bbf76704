package controllers

import (
	"net/http"

	"github.com/dekorekillian57-star/spendo/api/responses"
	"github.com/dekorekillian57-star/spendo/internal/orders"
	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

// TrackOrder finds the newest order matching any of the supplied identifiers.
func TrackOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		query := r.URL.Query()
		order, err := svc.Track(r.Context(), orders.Criteria{
			OrderCode:  query.Get("order_id"),
			Phone:      query.Get("phone_number"),
			SmartCard:  query.Get("smart_card_number"),
			PaymentRef: query.Get("transaction_ref"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderDTO(*order))
	}
}
