package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Confirmation outcomes.
const (
	OutcomeMaterialized     = "materialized"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeFailed           = "failed"
	OutcomeError            = "error"
)

// PaymentMetrics tracks checkout and gateway traffic.
type PaymentMetrics struct {
	checkouts     *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	gateway       *prometheus.HistogramVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendo_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendo_payment_confirmations_total",
		Help: "Payment confirmations by source and outcome.",
	}, []string{"source", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendo_paystack_webhooks_total",
		Help: "Paystack webhook deliveries by event and result.",
	}, []string{"event", "result"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spendo_paystack_request_duration_seconds",
		Help:    "Latency of Paystack API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})
	reg.MustRegister(checkouts, confirmations, webhooks, gateway)
	return &PaymentMetrics{
		checkouts:     checkouts,
		confirmations: confirmations,
		webhooks:      webhooks,
		gateway:       gateway,
	}
}

func (m *PaymentMetrics) IncCheckout(result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncConfirmation counts a confirmation from "webhook" or "callback".
func (m *PaymentMetrics) IncConfirmation(source, outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncWebhook(event, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

// ObserveGateway records one Paystack API round trip.
func (m *PaymentMetrics) ObserveGateway(operation string, err error, d time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), result).Observe(d.Seconds())
}
