package models

import "time"

const (
	InviteTypeInvite   = "invite"
	InviteTypeReferral = "referral"
	InviteTypePartner  = "partner"
)

const (
	InviteStatusActive  = "active"
	InviteStatusPaused  = "paused"
	InviteStatusExpired = "expired"
)

// InviteCode is a marketing/partner code redeemable at checkout. Codes are
// stored normalized (trimmed, lowercased); lookups must normalize first.
type InviteCode struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Code                string     `gorm:"type:varchar(64);not null;index:ux_invite_codes_code,unique" json:"code"`
	Type                string     `gorm:"type:varchar(16);not null;default:'invite';index" json:"type"`
	Status              string     `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	MaxUses             *int       `gorm:"default:null" json:"max_uses,omitempty"`
	UsedCount           int        `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt           *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	RevenueSharePercent float64    `gorm:"type:decimal(5,2);not null;default:0" json:"revenue_share_percent"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpiredAt reports whether the code's expiry timestamp has passed.
// Codes without an expiry never expire by time.
func (ic *InviteCode) IsExpiredAt(t time.Time) bool {
	return ic.ExpiresAt != nil && !ic.ExpiresAt.After(t)
}

// UsesExhausted reports whether the redemption limit has been reached.
// Codes without a limit are never exhausted.
func (ic *InviteCode) UsesExhausted() bool {
	return ic.MaxUses != nil && ic.UsedCount >= *ic.MaxUses
}
