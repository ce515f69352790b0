package billing

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
)

// SubscriptionWindow is the validity window a settled payment grants.
// ExpiresAt == nil means lifetime access.
type SubscriptionWindow struct {
	StartsAt  time.Time
	ExpiresAt *time.Time
}

// ComputeWindow derives the subscription window a payment for the given
// plan opens, based on the window the subscription currently holds:
//
//   - first payment (no current start): the window opens at now
//   - renewal while still active: the new duration stacks on top of the
//     current expiry, it never resets to now
//   - renewal after lapse: the window restarts at now
//
// Lifetime plans (DurationDays == nil) yield a nil expiry. Pure function,
// safe to call with any fixed now in tests.
func ComputeWindow(plan *models.Plan, currentStartsAt, currentExpiresAt *time.Time, now time.Time) SubscriptionWindow {
	if currentStartsAt == nil {
		return SubscriptionWindow{StartsAt: now, ExpiresAt: expiryFrom(now, plan.DurationDays)}
	}

	if currentExpiresAt != nil && currentExpiresAt.After(now) {
		return SubscriptionWindow{StartsAt: *currentStartsAt, ExpiresAt: expiryFrom(*currentExpiresAt, plan.DurationDays)}
	}

	return SubscriptionWindow{StartsAt: now, ExpiresAt: expiryFrom(now, plan.DurationDays)}
}

func expiryFrom(base time.Time, durationDays *int) *time.Time {
	if durationDays == nil {
		return nil
	}
	t := base.AddDate(0, 0, *durationDays)
	return &t
}
