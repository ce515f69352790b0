package invites

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

type fakeCodeFinder struct {
	codes map[string]*models.InviteCode
	err   error
}

func (f *fakeCodeFinder) GetByCode(code string) (*models.InviteCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	ic, ok := f.codes[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ic
	return &cp, nil
}

func newTestValidator(codes ...*models.InviteCode) *Validator {
	m := make(map[string]*models.InviteCode, len(codes))
	for _, ic := range codes {
		m[ic.Code] = ic
	}
	v := NewValidator(&fakeCodeFinder{codes: m})
	v.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func intPtr(n int) *int { return &n }

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  PARTNER10  ": "partner10",
		"Friend-Of-Fox": "friend-of-fox",
		"":              "",
		"  ":            "",
		"already-ok":    "already-ok",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateReturnsCode(t *testing.T) {
	v := newTestValidator(&models.InviteCode{
		ID:     7,
		Code:   "partner10",
		Status: models.InviteStatusActive,
	})

	ic, err := v.Validate("  PARTNER10  ")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if ic.ID != 7 {
		t.Errorf("expected code id 7, got %d", ic.ID)
	}
}

func TestValidateRejections(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name       string
		code       *models.InviteCode
		input      string
		wantReason string
	}{
		{
			name:       "unknown code",
			code:       &models.InviteCode{Code: "exists", Status: models.InviteStatusActive},
			input:      "does-not-exist",
			wantReason: ReasonNotFound,
		},
		{
			name:       "empty input",
			code:       &models.InviteCode{Code: "exists", Status: models.InviteStatusActive},
			input:      "   ",
			wantReason: ReasonNotFound,
		},
		{
			name:       "paused code",
			code:       &models.InviteCode{Code: "paused", Status: models.InviteStatusPaused},
			input:      "paused",
			wantReason: ReasonNotActive,
		},
		{
			name: "status expired wins over anything time based",
			code: &models.InviteCode{
				Code:      "retired",
				Status:    models.InviteStatusExpired,
				ExpiresAt: &future,
			},
			input:      "retired",
			wantReason: ReasonNotActive,
		},
		{
			name: "expiry in the past",
			code: &models.InviteCode{
				Code:      "stale",
				Status:    models.InviteStatusActive,
				ExpiresAt: &past,
			},
			input:      "stale",
			wantReason: ReasonExpired,
		},
		{
			name: "usage limit reached",
			code: &models.InviteCode{
				Code:      "full",
				Status:    models.InviteStatusActive,
				MaxUses:   intPtr(5),
				UsedCount: 5,
			},
			input:      "full",
			wantReason: ReasonLimitReached,
		},
		{
			name: "expired and exhausted reports expired",
			code: &models.InviteCode{
				Code:      "both",
				Status:    models.InviteStatusActive,
				ExpiresAt: &past,
				MaxUses:   intPtr(1),
				UsedCount: 1,
			},
			input:      "both",
			wantReason: ReasonExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(tt.code)
			_, err := v.Validate(tt.input)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("expected reason %s, got %s (%s)", tt.wantReason, verr.Reason, verr.Message)
			}
		})
	}
}

func TestValidateUnboundedUses(t *testing.T) {
	v := newTestValidator(&models.InviteCode{
		Code:      "open",
		Status:    models.InviteStatusActive,
		UsedCount: 100000,
	})

	if _, err := v.Validate("open"); err != nil {
		t.Fatalf("code without max_uses must never be exhausted, got %v", err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := newTestValidator(&models.InviteCode{
		Code:      "edge",
		Status:    models.InviteStatusActive,
		ExpiresAt: &now,
	})

	_, err := v.Validate("edge")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonExpired {
		t.Fatalf("expiry exactly at now must count as expired, got %v", err)
	}
}

func TestValidatePassesThroughInfraErrors(t *testing.T) {
	dbErr := errors.New("connection refused")
	v := NewValidator(&fakeCodeFinder{err: dbErr})

	_, err := v.Validate("whatever")
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped infrastructure error, got %v", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatal("infrastructure failure must not be reported as a validation error")
	}
}
