package models

import "time"

// Plan is a purchasable subscription tier. DurationDays == nil marks a
// lifetime plan that never expires once activated.
type Plan struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Code              string    `gorm:"type:varchar(50);not null;index:ux_plans_code,unique" json:"code"`
	Name              string    `gorm:"type:varchar(100);not null" json:"name"`
	PriceUsd          float64   `gorm:"type:decimal(10,2);not null" json:"price_usd"`
	DurationDays      *int      `gorm:"default:null" json:"duration_days,omitempty"`
	MaxRequestsPerDay int       `gorm:"not null;default:0" json:"max_requests_per_day"`
	IsActive          bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLifetime reports whether the plan grants access without an expiry.
func (p *Plan) IsLifetime() bool {
	return p.DurationDays == nil
}
