package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionHasBeenActivated(t *testing.T) {
	sub := &Subscription{Status: SubscriptionStatusPendingPayment}
	assert.False(t, sub.HasBeenActivated())

	startsAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sub.StartsAt = &startsAt
	assert.True(t, sub.HasBeenActivated())

	// The flag survives later state changes; it marks the first settlement,
	// not the current status.
	sub.Status = SubscriptionStatusCanceled
	assert.True(t, sub.HasBeenActivated())
}

func TestSubscriptionIsActiveAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(24 * time.Hour)

	sub := &Subscription{Status: SubscriptionStatusActive, ExpiresAt: &expiresAt}
	assert.True(t, sub.IsActiveAt(now))
	assert.False(t, sub.IsActiveAt(expiresAt), "expiry boundary counts as lapsed")
	assert.False(t, sub.IsActiveAt(expiresAt.Add(time.Second)))

	lifetime := &Subscription{Status: SubscriptionStatusActive}
	assert.True(t, lifetime.IsActiveAt(now.AddDate(50, 0, 0)))

	for _, status := range []string{
		SubscriptionStatusPendingPayment,
		SubscriptionStatusPaused,
		SubscriptionStatusCanceled,
		SubscriptionStatusExpired,
		SubscriptionStatusLicenseFailed,
	} {
		sub := &Subscription{Status: status, ExpiresAt: &expiresAt}
		assert.False(t, sub.IsActiveAt(now), "status %s must not count as active", status)
	}
}
