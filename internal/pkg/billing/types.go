package billing

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// IPNPayload is the subset of the gateway callback body reconciliation
// works with. payment_id and purchase_id arrive as JSON numbers;
// json.Number keeps them lossless.
type IPNPayload struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	OrderID       string      `json:"order_id"`
	PriceAmount   float64     `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	PayAmount     float64     `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	ActuallyPaid  float64     `json:"actually_paid"`
	PurchaseID    json.Number `json:"purchase_id"`
}

// ParseIPNPayload decodes a verified callback body. Unknown fields are
// ignored; a payload without a payment_status is rejected because nothing
// can be reconciled from it.
func ParseIPNPayload(raw []byte) (*IPNPayload, error) {
	var p IPNPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.PaymentStatus) == "" {
		return nil, errors.New("callback payload missing payment_status")
	}
	return &p, nil
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	PaymentStatus   string
	OrderRef        string
	PayloadJSON     string
	SignatureValid  bool
}

// Settlement is the atomic state change for a successful payment: the
// invoice flips to paid, the subscription window opens and, on first
// activation only, the invite code use is consumed.
type Settlement struct {
	InvoiceID           uint
	ProviderPaymentID   string
	PayCurrency         string
	PaidAt              time.Time
	SubscriptionID      uint
	StartsAt            time.Time
	ExpiresAt           *time.Time
	ConsumeInviteCodeID *uint
}
