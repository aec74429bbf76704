package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncCheckout("ok")
	m.IncConfirmation("webhook", OutcomeMaterialized)
	m.IncConfirmation("callback", OutcomeAlreadyProcessed)
	m.IncWebhook("charge.success", "accepted")
	m.ObserveGateway("verify", errors.New("timeout"), 2*time.Second)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "spendo_checkouts_total", "result", "ok")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "spendo_payment_confirmations_total", "outcome", OutcomeAlreadyProcessed)
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "spendo_paystack_request_duration_seconds", "result", "error")
	require.NoError(t, err)
	assert.Equal(t, float64(2), sum)
}

func TestNilPaymentMetricsIsNoop(t *testing.T) {
	var m *PaymentMetrics
	m.IncCheckout("ok")
	m.IncConfirmation("webhook", OutcomeFailed)
	m.IncWebhook("charge.failed", "ignored")
	m.ObserveGateway("initialize", nil, time.Millisecond)
}
