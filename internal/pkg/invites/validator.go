package invites

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

// Rejection reasons in check order. A code failing several checks reports
// the first one, so a code that is both expired and exhausted is EXPIRED.
const (
	ReasonNotFound     = "NOT_FOUND"
	ReasonNotActive    = "NOT_ACTIVE"
	ReasonExpired      = "EXPIRED"
	ReasonLimitReached = "LIMIT_REACHED"
)

// ValidationError is the business rejection of an invite code. Callers
// separate it from infrastructure errors with errors.As.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Normalize maps user input onto the stored form of a code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CodeFinder is the single lookup the validator needs. The invite code
// repository satisfies it.
type CodeFinder interface {
	GetByCode(code string) (*models.InviteCode, error)
}

// Validator checks invite codes against their redemption rules. It never
// consumes a use; usage is counted during payment settlement so that
// pre-checkout validation stays free of side effects.
type Validator struct {
	codes CodeFinder
	now   func() time.Time
}

func NewValidator(codes CodeFinder) *Validator {
	return &Validator{codes: codes, now: time.Now}
}

// Validate resolves the normalized code and checks existence, status,
// expiry and the use limit in that fixed order.
func (v *Validator) Validate(code string) (*models.InviteCode, error) {
	ic, err := v.codes.GetByCode(Normalize(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: ReasonNotFound, Message: "invite code not found"}
		}
		return nil, err
	}
	if ic.Status != models.InviteStatusActive {
		return nil, &ValidationError{Reason: ReasonNotActive, Message: "invite code is not active"}
	}
	if ic.IsExpiredAt(v.now()) {
		return nil, &ValidationError{Reason: ReasonExpired, Message: "invite code has expired"}
	}
	if ic.UsesExhausted() {
		return nil, &ValidationError{Reason: ReasonLimitReached, Message: "invite code has reached its usage limit"}
	}
	return ic, nil
}
