package billing

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

func strPtr(s string) *string { return &s }

func seedActiveSubscription(repo *fakeRepo, plan *models.Plan) *models.Subscription {
	startsAt := testNow.AddDate(0, 0, -30)
	sub := &models.Subscription{
		ID:          1,
		UserEmail:   "fox@example.com",
		ProductCode: "payfox",
		PlanID:      plan.ID,
		Plan:        plan,
		LicenseKey:  "PFX-LIVE-KEY",
		Status:      models.SubscriptionStatusActive,
		StartsAt:    &startsAt,
		ExpiresAt:   timePtr(testNow.AddDate(0, 0, 10)),
	}
	repo.subs[sub.ID] = sub
	return sub
}

func TestAdminUpdateRequiresAtLeastOneField(t *testing.T) {
	repo := newFakeRepo()
	seedActiveSubscription(repo, monthlyPlan())
	svc := newTestService(repo, &fakeLicense{})

	_, err := svc.ApplyAdminUpdate(context.Background(), 1, AdminUpdateInput{})
	if !errors.Is(err, ErrNoAdminFields) {
		t.Fatalf("expected ErrNoAdminFields, got %v", err)
	}
}

func TestAdminUpdateUnknownSubscription(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLicense{})

	_, err := svc.ApplyAdminUpdate(context.Background(), 99, AdminUpdateInput{Status: strPtr("paused")})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}

func TestAdminUpdateStatusPushesToAuthority(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	lic := &fakeLicense{}
	svc := newTestService(repo, lic)

	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{Status: strPtr("  Paused ")})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}
	if updated.Status != models.SubscriptionStatusPaused {
		t.Errorf("status = %s, want paused", updated.Status)
	}
	if repo.subs[sub.ID].Status != models.SubscriptionStatusPaused {
		t.Errorf("stored status = %s, want paused", repo.subs[sub.ID].Status)
	}

	if len(lic.updates) != 1 {
		t.Fatalf("expected exactly one authority push, got %d", len(lic.updates))
	}
	push := lic.updates[0]
	if push.SubscriptionID != sub.ID || push.UserEmail != "fox@example.com" || push.LicenseKey != "PFX-LIVE-KEY" {
		t.Errorf("push identity = %+v", push)
	}
	if push.Status == nil || *push.Status != models.SubscriptionStatusPaused {
		t.Errorf("push status = %v, want paused", push.Status)
	}
	if push.ExpiresAt != nil || push.MaxRequests != nil || push.AddDays != nil {
		t.Errorf("untouched fields must not be pushed: %+v", push)
	}
}

func TestAdminUpdateRejectsReservedStatuses(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionStatusPendingPayment,
		models.SubscriptionStatusLicenseFailed,
		"garbage",
	} {
		t.Run(status, func(t *testing.T) {
			repo := newFakeRepo()
			sub := seedActiveSubscription(repo, monthlyPlan())
			lic := &fakeLicense{}
			svc := newTestService(repo, lic)

			_, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{Status: &status})
			if !errors.Is(err, ErrInvalidAdminStatus) {
				t.Fatalf("expected ErrInvalidAdminStatus, got %v", err)
			}
			if repo.subs[sub.ID].Status != models.SubscriptionStatusActive {
				t.Errorf("rejected update must not change local state")
			}
			if len(lic.updates) != 0 {
				t.Errorf("rejected update must not reach the authority")
			}
		})
	}
}

func TestAdminAddDaysExtendsExistingExpiry(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	lic := &fakeLicense{}
	svc := newTestService(repo, lic)

	// addDays wins even when an explicit expiry is supplied alongside it.
	explicit := testNow.AddDate(0, 0, 365)
	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{
		AddDays:   daysPtr(7),
		ExpiresAt: &explicit,
	})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}

	want := testNow.AddDate(0, 0, 17) // existing expiry (+10d) plus 7
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", updated.ExpiresAt, want)
	}
	if push := lic.updates[0]; push.ExpiresAt == nil || !push.ExpiresAt.Equal(want) {
		t.Errorf("pushed expiry = %v, want %v", push.ExpiresAt, want)
	}
}

func TestAdminAddDaysStartsFromNowWithoutExpiry(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	sub.ExpiresAt = nil
	svc := newTestService(repo, &fakeLicense{})

	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{AddDays: daysPtr(14)})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}
	want := testNow.AddDate(0, 0, 14)
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", updated.ExpiresAt, want)
	}
}

func TestAdminExplicitExpiryIsTakenVerbatim(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	svc := newTestService(repo, &fakeLicense{})

	// Explicit override may also shorten the window.
	explicit := testNow.AddDate(0, 0, 2)
	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{ExpiresAt: &explicit})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(explicit) {
		t.Errorf("expires_at = %v, want %v", updated.ExpiresAt, explicit)
	}
}

func TestAdminRelinkInviteCode(t *testing.T) {
	repo := newFakeRepo()
	repo.codes[8] = &models.InviteCode{ID: 8, Code: "partner10", Status: models.InviteStatusActive}
	sub := seedActiveSubscription(repo, monthlyPlan())
	svc := newTestService(repo, &fakeLicense{})

	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{InviteCode: strPtr("  PARTNER10 ")})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}
	if updated.InviteCodeID == nil || *updated.InviteCodeID != 8 {
		t.Errorf("invite_code_id = %v, want 8", updated.InviteCodeID)
	}

	updated, err = svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{InviteCode: strPtr("")})
	if err != nil {
		t.Fatalf("clearing the invite returned error: %v", err)
	}
	if updated.InviteCodeID != nil {
		t.Errorf("invite_code_id = %v, want cleared", updated.InviteCodeID)
	}
}

func TestAdminRelinkUnknownInviteCode(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	lic := &fakeLicense{}
	svc := newTestService(repo, lic)

	_, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{InviteCode: strPtr("nope")})
	if !errors.Is(err, ErrInviteCodeNotFound) {
		t.Fatalf("expected ErrInviteCodeNotFound, got %v", err)
	}
	if len(lic.updates) != 0 {
		t.Errorf("failed update must not reach the authority")
	}
}

func TestAdminMaxRequestsIsAuthorityOnly(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	lic := &fakeLicense{}
	svc := newTestService(repo, lic)

	updated, err := svc.ApplyAdminUpdate(context.Background(), sub.ID, AdminUpdateInput{MaxRequests: daysPtr(1000)})
	if err != nil {
		t.Fatalf("ApplyAdminUpdate returned error: %v", err)
	}
	if updated.Status != models.SubscriptionStatusActive || updated.ExpiresAt == nil {
		t.Errorf("local subscription must stay untouched: %+v", updated)
	}
	push := lic.updates[0]
	if push.MaxRequests == nil || *push.MaxRequests != 1000 {
		t.Errorf("pushed max requests = %v, want 1000", push.MaxRequests)
	}
	if push.Status != nil || push.ExpiresAt != nil {
		t.Errorf("untouched fields must not be pushed: %+v", push)
	}
}

func TestRetryLicenseIssuance(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	sub.Status = models.SubscriptionStatusLicenseFailed
	sub.LicenseKey = ""
	lic := &fakeLicense{key: "PFX-RETRY-KEY"}
	svc := newTestService(repo, lic)

	updated, err := svc.RetryLicenseIssuance(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("RetryLicenseIssuance returned error: %v", err)
	}
	if updated.Status != models.SubscriptionStatusActive {
		t.Errorf("status = %s, want active", updated.Status)
	}
	if updated.LicenseKey != "PFX-RETRY-KEY" {
		t.Errorf("license key = %q", updated.LicenseKey)
	}
	if repo.subs[sub.ID].LicenseKey != "PFX-RETRY-KEY" {
		t.Errorf("stored license key = %q", repo.subs[sub.ID].LicenseKey)
	}
	if len(lic.issued) != 1 {
		t.Fatalf("expected one upsert, got %d", len(lic.issued))
	}
	issued := lic.issued[0]
	if !issued.StartsAt.Equal(*sub.StartsAt) {
		t.Errorf("upsert must reuse the settled window start, got %v", issued.StartsAt)
	}
	if issued.ExpiresAt == nil || !issued.ExpiresAt.Equal(*sub.ExpiresAt) {
		t.Errorf("upsert must reuse the settled window end, got %v", issued.ExpiresAt)
	}
}

func TestRetryLicenseIssuanceNotApplicable(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan()) // active with a key already
	svc := newTestService(repo, &fakeLicense{key: "PFX-KEY"})

	if _, err := svc.RetryLicenseIssuance(context.Background(), sub.ID); !errors.Is(err, ErrLicenseRetryNotApplicable) {
		t.Fatalf("expected ErrLicenseRetryNotApplicable, got %v", err)
	}

	sub.Status = models.SubscriptionStatusPendingPayment
	sub.LicenseKey = ""
	if _, err := svc.RetryLicenseIssuance(context.Background(), sub.ID); !errors.Is(err, ErrLicenseRetryNotApplicable) {
		t.Fatalf("pending subscription must not be retryable, got %v", err)
	}
}

func TestRetryLicenseIssuanceSurfacesAuthorityFailure(t *testing.T) {
	repo := newFakeRepo()
	sub := seedActiveSubscription(repo, monthlyPlan())
	sub.Status = models.SubscriptionStatusLicenseFailed
	sub.LicenseKey = ""
	svc := newTestService(repo, &fakeLicense{issueErr: errors.New("still no")})

	if _, err := svc.RetryLicenseIssuance(context.Background(), sub.ID); err == nil {
		t.Fatal("expected the authority failure to surface to the operator")
	}
	if repo.subs[sub.ID].Status != models.SubscriptionStatusLicenseFailed {
		t.Errorf("failed retry must keep the remediation flag, got %s", repo.subs[sub.ID].Status)
	}
}
