package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	pkgerrors "github.com/dekorekillian57-star/spendo/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "X-Paystack-Signature"

const (
	EventChargeSuccess        = "charge.success"
	EventChargeFailed         = "charge.failed"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Event is a webhook delivery.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData is the transaction a delivery describes. Invoice events carry the
// charge reference under data.invoice.
type EventData struct {
	Transaction
	Invoice *struct {
		Reference string `json:"reference"`
	} `json:"invoice,omitempty"`
}

// Reference returns the charge reference the event is about.
func (e Event) Reference() string {
	if ref := strings.TrimSpace(e.Data.Reference); ref != "" {
		return ref
	}
	if e.Data.Invoice != nil {
		return strings.TrimSpace(e.Data.Invoice.Reference)
	}
	return ""
}

// IsFailure reports events that signal a definitive failed charge.
func (e Event) IsFailure() bool {
	return e.Event == EventChargeFailed || e.Event == EventInvoicePaymentFailed
}

// Sign computes the signature Paystack would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time. An empty secret never verifies.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

// ParseEvent authenticates and decodes a webhook body.
func ParseEvent(secret string, body []byte, signature string) (*Event, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing webhook signature")
	}
	if !VerifySignature(secret, body, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	if strings.TrimSpace(evt.Event) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event is required")
	}
	return &evt, nil
}
