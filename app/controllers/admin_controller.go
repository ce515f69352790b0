package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/codegen"
	"github.com/ManuelReschke/PayFox/internal/pkg/invites"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics/counter"
)

const generatedInviteCodeLength = 10

// AdminController handles the operator API using the repository pattern and
// the billing service for anything that must reach the license authority.
type AdminController struct {
	repos   *repository.Repositories
	billing *billing.Service
}

// NewAdminController creates a new admin controller with its dependencies
func NewAdminController(repos *repository.Repositories, svc *billing.Service) *AdminController {
	return &AdminController{
		repos:   repos,
		billing: svc,
	}
}

// HandleGetSubscription returns one subscription with its resolved plan and
// invite code summary.
func (ac *AdminController) HandleGetSubscription(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "id must be a positive integer"})
	}

	sub, err := ac.repos.Subscription.GetByIDWithPlan(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	invoices, err := ac.repos.Invoice.ListBySubscriptionID(sub.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{"subscription": sub, "invoices": invoices})
}

type adminSubscriptionPatch struct {
	Status      *string `json:"status"`
	ExpiresAt   *string `json:"expiresAt"`
	AddDays     *int    `json:"addDays"`
	InviteCode  *string `json:"inviteCode"`
	MaxRequests *int    `json:"maxRequests"`
}

// HandleUpdateSubscription applies an operator's partial update. At least one
// field must be present; addDays beats an explicit expiresAt. The license
// authority push happens inside the service and never fails the request.
func (ac *AdminController) HandleUpdateSubscription(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "id must be a positive integer"})
	}

	var req adminSubscriptionPatch
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Body must be valid JSON"})
	}

	input := billing.AdminUpdateInput{
		Status:      req.Status,
		AddDays:     req.AddDays,
		InviteCode:  req.InviteCode,
		MaxRequests: req.MaxRequests,
	}
	if req.ExpiresAt != nil {
		expiry, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "expiresAt must be RFC3339"})
		}
		input.ExpiresAt = &expiry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sub, err := ac.billing.ApplyAdminUpdate(ctx, id, input)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNoAdminFields):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
		case errors.Is(err, billing.ErrInvalidAdminStatus):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_status", "message": err.Error()})
		case errors.Is(err, billing.ErrInviteCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite_code_not_found", "message": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{"subscription": sub})
}

// HandleRetryLicense re-runs license issuance for a subscription stuck in
// payment_received_but_license_failed. Unlike the webhook path this surfaces
// authority failures, because an operator is watching the response.
func (ac *AdminController) HandleRetryLicense(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "id must be a positive integer"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sub, err := ac.billing.RetryLicenseIssuance(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrLicenseRetryNotApplicable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "retry_not_applicable", "message": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "subscription_not_found"})
		}
		fiberlog.Error("license retry failed: " + err.Error())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "license_authority_error", "message": err.Error()})
	}

	return c.JSON(fiber.Map{"subscription": sub})
}

type adminInviteCreate struct {
	Code                string   `json:"code"`
	Type                string   `json:"type"`
	MaxUses             *int     `json:"maxUses"`
	ExpiresAt           *string  `json:"expiresAt"`
	RevenueSharePercent *float64 `json:"revenueSharePercent"`
}

// HandleCreateInvite creates an invite code. Without an explicit code a
// random one is generated; codes are stored normalized.
func (ac *AdminController) HandleCreateInvite(c *fiber.Ctx) error {
	var req adminInviteCreate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Body must be valid JSON"})
	}

	code := invites.Normalize(req.Code)
	if code == "" {
		generated, err := codegen.GenerateCode(generatedInviteCodeLength)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
		}
		code = generated
	}

	inviteType := strings.ToLower(strings.TrimSpace(req.Type))
	if inviteType == "" {
		inviteType = models.InviteTypeInvite
	}
	switch inviteType {
	case models.InviteTypeInvite, models.InviteTypeReferral, models.InviteTypePartner:
	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "type must be one of invite, referral, partner"})
	}

	invite := &models.InviteCode{
		Code:   code,
		Type:   inviteType,
		Status: models.InviteStatusActive,
	}
	if err := applyInviteFields(invite, req.MaxUses, req.ExpiresAt, req.RevenueSharePercent); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if _, err := ac.repos.InviteCode.GetByCode(code); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "code_exists", "message": "An invite code with this code already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	if err := ac.repos.InviteCode.Create(invite); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invite_code": invite})
}

type adminInvitePatch struct {
	Status              *string  `json:"status"`
	MaxUses             *int     `json:"maxUses"`
	ExpiresAt           *string  `json:"expiresAt"`
	RevenueSharePercent *float64 `json:"revenueSharePercent"`
}

// HandleUpdateInvite edits an invite code's status and limits.
func (ac *AdminController) HandleUpdateInvite(c *fiber.Ctx) error {
	code := invites.Normalize(c.Params("code"))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "code is required"})
	}

	var req adminInvitePatch
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Body must be valid JSON"})
	}
	if req.Status == nil && req.MaxUses == nil && req.ExpiresAt == nil && req.RevenueSharePercent == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "at least one field must be provided"})
	}

	invite, err := ac.repos.InviteCode.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite_code_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		switch status {
		case models.InviteStatusActive, models.InviteStatusPaused, models.InviteStatusExpired:
			invite.Status = status
		default:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "status must be one of active, paused, expired"})
		}
	}
	if err := applyInviteFields(invite, req.MaxUses, req.ExpiresAt, req.RevenueSharePercent); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := ac.repos.InviteCode.Update(invite); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{"invite_code": invite})
}

// HandleWebhookStats returns the per-day webhook outcome counters kept in
// Redis. Defaults to today (UTC).
func (ac *AdminController) HandleWebhookStats(c *fiber.Ctx) error {
	day := time.Now().UTC()
	if q := strings.TrimSpace(c.Query("day")); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "day must be YYYY-MM-DD"})
		}
		day = parsed
	}

	stats, err := counter.WebhookStats(day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{"day": day.Format("2006-01-02"), "counters": stats})
}

// applyInviteFields applies the shared optional fields of invite create and
// patch requests. Clearing is not supported here; omit a field to keep it.
func applyInviteFields(invite *models.InviteCode, maxUses *int, expiresAt *string, revShare *float64) error {
	if maxUses != nil {
		if *maxUses <= 0 {
			return errors.New("maxUses must be positive")
		}
		invite.MaxUses = maxUses
	}
	if expiresAt != nil {
		expiry, err := time.Parse(time.RFC3339, *expiresAt)
		if err != nil {
			return errors.New("expiresAt must be RFC3339")
		}
		invite.ExpiresAt = &expiry
	}
	if revShare != nil {
		if *revShare < 0 || *revShare > 100 {
			return errors.New("revenueSharePercent must be between 0 and 100")
		}
		invite.RevenueSharePercent = *revShare
	}
	return nil
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
