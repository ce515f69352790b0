package models

import "time"

const (
	SubscriptionStatusPendingPayment = "pending_payment"
	SubscriptionStatusActive         = "active"
	SubscriptionStatusExpired        = "expired"
	SubscriptionStatusCanceled       = "canceled"
	SubscriptionStatusPaused         = "paused"
	// SubscriptionStatusLicenseFailed marks the money-received/no-license
	// state: the invoice is paid but the license authority rejected the
	// upsert. Requires manual remediation via the admin license retry.
	SubscriptionStatusLicenseFailed = "payment_received_but_license_failed"
)

// Subscription ties a customer to a plan and mirrors the access window the
// external license authority grants. ExpiresAt == nil on an activated
// subscription means lifetime access.
type Subscription struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserEmail    string      `gorm:"type:varchar(191);not null;index" json:"user_email"`
	ProductCode  string      `gorm:"type:varchar(50);not null;default:'payfox';index" json:"product_code"`
	PlanID       uint        `gorm:"not null;index" json:"plan_id"`
	Plan         *Plan       `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	InviteCodeID *uint       `gorm:"default:null;index" json:"invite_code_id,omitempty"`
	InviteCode   *InviteCode `gorm:"foreignKey:InviteCodeID" json:"invite_code,omitempty"`
	LicenseKey   string      `gorm:"type:varchar(191);not null;default:'';index" json:"license_key"`
	Status       string      `gorm:"type:varchar(40);not null;default:'pending_payment';index" json:"status"`
	StartsAt     *time.Time  `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	ExpiresAt    *time.Time  `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasBeenActivated reports whether the subscription ever received a
// successful payment. Invite-code consumption is tied to the first
// activation, so renewals must not re-consume the code.
func (s *Subscription) HasBeenActivated() bool {
	return s.StartsAt != nil
}

// IsActiveAt reports whether the access window covers the given instant.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(t)
}
