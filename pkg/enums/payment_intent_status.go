package enums

import "fmt"

// PaymentIntentStatus tracks a checkout reference from initialization to confirmation.
type PaymentIntentStatus string

const (
	PaymentIntentInitialized PaymentIntentStatus = "initialized"
	PaymentIntentSucceeded   PaymentIntentStatus = "succeeded"
	PaymentIntentFailed      PaymentIntentStatus = "failed"
	PaymentIntentExpired     PaymentIntentStatus = "expired"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentInitialized,
	PaymentIntentSucceeded,
	PaymentIntentFailed,
	PaymentIntentExpired,
}

// String implements fmt.Stringer.
func (s PaymentIntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentIntentStatus.
func (s PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
