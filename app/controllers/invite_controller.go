package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/invites"
)

type inviteValidateRequest struct {
	Code string `json:"code"`
}

// HandleValidateInvite checks an invite code for the checkout page without
// consuming a use. The same validator runs again inside checkout, so a code
// that expires between the two calls is still rejected at purchase time.
func HandleValidateInvite(c *fiber.Ctx) error {
	var req inviteValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Body must be valid JSON"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "code is required"})
	}

	codes := repository.GetGlobalFactory().GetInviteCodeRepository()
	code, err := invites.NewValidator(codes).Validate(req.Code)
	if err != nil {
		var verr *invites.ValidationError
		if errors.As(err, &verr) {
			status := fiber.StatusUnprocessableEntity
			if verr.Reason == invites.ReasonNotFound {
				status = fiber.StatusNotFound
			}
			return c.Status(status).JSON(fiber.Map{"valid": false, "kind": verr.Reason, "message": verr.Message})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	resp := fiber.Map{
		"valid": true,
		"code":  code.Code,
		"type":  code.Type,
	}
	if code.MaxUses != nil {
		resp["uses_left"] = *code.MaxUses - code.UsedCount
	}
	return c.JSON(resp)
}
