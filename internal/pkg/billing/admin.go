package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/invites"
	"github.com/ManuelReschke/PayFox/internal/pkg/license"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	// ErrNoAdminFields rejects an empty partial update.
	ErrNoAdminFields = errors.New("at least one field must be provided")
	// ErrInvalidAdminStatus rejects statuses operators may not set directly.
	ErrInvalidAdminStatus = errors.New("status not allowed for admin updates")
	// ErrInviteCodeNotFound rejects a relink to a nonexistent invite code.
	ErrInviteCodeNotFound = errors.New("invite code not found")
	// ErrLicenseRetryNotApplicable rejects a retry on a subscription that is
	// not waiting for license remediation.
	ErrLicenseRetryNotApplicable = errors.New("subscription is not awaiting license issuance")
)

// Statuses operators may set directly. pending_payment and the
// license-failed flag belong to the reconciler.
var adminSettableStatuses = map[string]bool{
	models.SubscriptionStatusActive:   true,
	models.SubscriptionStatusPaused:   true,
	models.SubscriptionStatusCanceled: true,
	models.SubscriptionStatusExpired:  true,
}

// AdminUpdateInput is an operator's partial update of one subscription. Nil
// means "leave untouched"; InviteCode set to the empty string unlinks the
// current code.
type AdminUpdateInput struct {
	Status      *string
	ExpiresAt   *time.Time
	AddDays     *int
	InviteCode  *string
	MaxRequests *int
}

func (in *AdminUpdateInput) isEmpty() bool {
	return in.Status == nil && in.ExpiresAt == nil && in.AddDays == nil &&
		in.InviteCode == nil && in.MaxRequests == nil
}

// ApplyAdminUpdate applies an operator's partial update to one subscription
// and pushes the touched fields to the license authority. The push is
// defensive: its failures are logged inside the client and never surfaced,
// so the admin operation succeeds on local state alone.
//
// AddDays wins over an explicit ExpiresAt and extends from the current
// expiry, or from now when the subscription has none.
func (s *Service) ApplyAdminUpdate(ctx context.Context, subscriptionID uint, in AdminUpdateInput) (*models.Subscription, error) {
	if in.isEmpty() {
		return nil, ErrNoAdminFields
	}

	sub, err := s.repo.GetSubscriptionWithPlan(subscriptionID)
	if err != nil {
		return nil, err
	}

	update := license.UpdateInput{
		SubscriptionID: sub.ID,
		UserEmail:      sub.UserEmail,
		LicenseKey:     sub.LicenseKey,
	}

	if in.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*in.Status))
		if !adminSettableStatuses[status] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAdminStatus, *in.Status)
		}
		sub.Status = status
		update.Status = &status
	}

	switch {
	case in.AddDays != nil:
		base := s.now()
		if sub.ExpiresAt != nil {
			base = *sub.ExpiresAt
		}
		expiry := base.AddDate(0, 0, *in.AddDays)
		sub.ExpiresAt = &expiry
		update.ExpiresAt = &expiry
	case in.ExpiresAt != nil:
		sub.ExpiresAt = in.ExpiresAt
		update.ExpiresAt = in.ExpiresAt
	}

	if in.InviteCode != nil {
		if code := invites.Normalize(*in.InviteCode); code == "" {
			sub.InviteCodeID = nil
			sub.InviteCode = nil
		} else {
			ic, err := s.repo.GetInviteCodeByCode(code)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("%w: %q", ErrInviteCodeNotFound, code)
				}
				return nil, err
			}
			sub.InviteCodeID = &ic.ID
			sub.InviteCode = ic
		}
	}

	if in.MaxRequests != nil {
		update.MaxRequests = in.MaxRequests
	}

	if err := s.repo.SaveSubscription(sub); err != nil {
		return nil, err
	}

	log.Infof("[Billing] subscription %d updated by admin (status=%s expires=%s)", sub.ID, sub.Status, formatExpiry(sub.ExpiresAt))
	s.license.UpdateFromSubscription(ctx, update)
	return sub, nil
}

// RetryLicenseIssuance re-runs license issuance for a subscription whose
// payment settled but whose license the authority rejected. Success
// promotes the subscription back to active. Unlike the defensive update
// path, issuance failures are surfaced to the operator.
func (s *Service) RetryLicenseIssuance(ctx context.Context, subscriptionID uint) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionWithPlan(subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Plan == nil {
		return nil, errors.New("subscription has no plan loaded")
	}
	retryable := sub.Status == models.SubscriptionStatusLicenseFailed ||
		(sub.Status == models.SubscriptionStatusActive && sub.LicenseKey == "")
	if !retryable || sub.StartsAt == nil {
		return nil, ErrLicenseRetryNotApplicable
	}

	lic, err := s.license.CreateOrExtend(ctx, license.UpsertInput{
		UserEmail:         sub.UserEmail,
		PlanCode:          sub.Plan.Code,
		StartsAt:          *sub.StartsAt,
		ExpiresAt:         sub.ExpiresAt,
		MaxRequestsPerDay: sub.Plan.MaxRequestsPerDay,
	})
	if err != nil {
		return nil, fmt.Errorf("license issuance retry: %w", err)
	}

	if err := s.repo.StoreIssuedLicense(sub.ID, lic.Key); err != nil {
		return nil, err
	}
	sub.LicenseKey = lic.Key
	sub.Status = models.SubscriptionStatusActive

	log.Infof("[Billing] license issued for subscription %d after retry", sub.ID)
	return sub, nil
}
