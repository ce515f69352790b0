package models

import "time"

const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusExpired  = "expired"
	InvoiceStatusCanceled = "canceled"
)

// PaymentProviderNOWPayments is the only gateway currently wired up.
const PaymentProviderNOWPayments = "nowpayments"

// Invoice records one payment attempt for a subscription. OrderRef is the
// order id we hand to the payment gateway and is the primary correlation
// key for inbound webhooks; ProviderPaymentID is the gateway's own id and
// serves as the fallback key. Paid, expired and canceled are terminal.
type Invoice struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint       `gorm:"not null;index" json:"subscription_id"`
	PlanID            uint       `gorm:"not null;index" json:"plan_id"`
	OrderRef          string     `gorm:"type:varchar(64);not null;index:ux_invoices_order_ref,unique" json:"order_ref"`
	AmountUsd         float64    `gorm:"type:decimal(10,2);not null" json:"amount_usd"`
	PayCurrency       string     `gorm:"type:varchar(16);not null;default:''" json:"pay_currency"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PaymentProvider   string     `gorm:"type:varchar(20);not null;default:'nowpayments'" json:"payment_provider"`
	ProviderPaymentID string     `gorm:"type:varchar(191);not null;default:'';index" json:"provider_payment_id"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the invoice can no longer change state.
func (i *Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusExpired || i.Status == InvoiceStatusCanceled
}
