package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/gateway"
	"github.com/ManuelReschke/PayFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/PayFox/internal/pkg/invites"
	"github.com/ManuelReschke/PayFox/internal/pkg/ratecache"
	"github.com/ManuelReschke/PayFox/internal/pkg/security"
)

// checkoutTokenTTL bounds how long a checkout page may poll its order status.
const checkoutTokenTTL = 2 * time.Hour

type checkoutRequest struct {
	Email        string `json:"email" validate:"required,email,max=191"`
	PlanCode     string `json:"plan_code" validate:"required,min=2,max=50"`
	PayCurrency  string `json:"pay_currency" validate:"required,min=2,max=16"`
	InviteCode   string `json:"invite_code" validate:"max=64"`
	CaptchaToken string `json:"captcha_token"`
}

// HandleCreateCheckout opens a new checkout: pending subscription + pending
// invoice, then a payment created at the gateway. The invite code is only
// validated here; its usage count is consumed later, when the payment
// actually settles.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Body must be valid JSON"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	// Captcha is only enforced when a secret is configured.
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		captchaCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		valid, err := hcaptcha.Verify(captchaCtx, req.CaptchaToken)
		cancel()
		if err != nil || !valid {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "captcha_failed", "message": "Captcha validation failed"})
		}
	}

	repos := repository.GetGlobalFactory().GetRepositories()

	plan, err := repos.Plan.GetByCode(strings.ToLower(strings.TrimSpace(req.PlanCode)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan_not_found", "message": "Unknown plan code"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	if !plan.IsActive {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "plan_inactive", "message": "Plan is not available for purchase"})
	}

	var inviteCodeID *uint
	if strings.TrimSpace(req.InviteCode) != "" {
		code, err := invites.NewValidator(repos.InviteCode).Validate(req.InviteCode)
		if err != nil {
			var verr *invites.ValidationError
			if errors.As(err, &verr) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invite_invalid", "kind": verr.Reason, "message": verr.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
		}
		inviteCodeID = &code.ID
	}

	sub := &models.Subscription{
		UserEmail:    strings.ToLower(strings.TrimSpace(req.Email)),
		PlanID:       plan.ID,
		InviteCodeID: inviteCodeID,
		Status:       models.SubscriptionStatusPendingPayment,
	}
	if err := repos.Subscription.Create(sub); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	invoice := &models.Invoice{
		SubscriptionID:  sub.ID,
		PlanID:          plan.ID,
		OrderRef:        uuid.NewString(),
		AmountUsd:       plan.PriceUsd,
		Status:          models.InvoiceStatusPending,
		PaymentProvider: models.PaymentProviderNOWPayments,
	}
	if err := repos.Invoice.Create(invoice); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	gw := gateway.NewClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payment, err := gw.CreatePayment(ctx, gateway.CreatePaymentInput{
		PriceAmount:      plan.PriceUsd,
		PriceCurrency:    "usd",
		PayCurrency:      req.PayCurrency,
		OrderRef:         invoice.OrderRef,
		OrderDescription: fmt.Sprintf("PayFox %s", plan.Name),
		CallbackURL:      webhookCallbackURL(),
	})
	if err != nil {
		fiberlog.Error(fmt.Sprintf("create payment for order %s failed: %v", invoice.OrderRef, err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_error", "message": "Payment gateway rejected the request"})
	}

	invoice.ProviderPaymentID = payment.PaymentID.String()
	invoice.PayCurrency = payment.PayCurrency
	if err := repos.Invoice.Update(invoice); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	token, err := security.GenerateCheckoutToken(invoice.OrderRef, checkoutTokenTTL, env.GetEnv("CHECKOUT_TOKEN_SECRET", ""))
	if err != nil {
		fiberlog.Warn("CHECKOUT_TOKEN_SECRET not set; refusing to issue checkout session")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "checkout_token_unconfigured"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_ref":      invoice.OrderRef,
		"status_token":   token,
		"pay_address":    payment.PayAddress,
		"pay_amount":     payment.PayAmount,
		"pay_currency":   payment.PayCurrency,
		"price_amount":   plan.PriceUsd,
		"price_currency": "usd",
		"expires_at":     time.Now().Add(checkoutTokenTTL).Unix(),
	})
}

// HandleCheckoutStatus is the polling endpoint for the payment page. The
// signed token scopes the caller to exactly one order ref, so order state
// cannot be enumerated.
func HandleCheckoutStatus(c *fiber.Ctx) error {
	orderRef := strings.TrimSpace(c.Params("orderRef"))
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.Get("X-Checkout-Token"))
	}

	claims, err := security.VerifyCheckoutToken(token, env.GetEnv("CHECKOUT_TOKEN_SECRET", ""))
	if err != nil || claims.OrderRef != orderRef {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_token"})
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	invoice, err := repos.Invoice.GetByOrderRef(orderRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	sub, err := repos.Subscription.GetByID(invoice.SubscriptionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	resp := fiber.Map{
		"order_ref":           invoice.OrderRef,
		"invoice_status":      invoice.Status,
		"subscription_status": sub.Status,
		"license_issued":      sub.LicenseKey != "",
	}
	if sub.ExpiresAt != nil {
		resp["expires_at"] = sub.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(resp)
}

// HandleListPlans returns the purchasable plans for the checkout page.
func HandleListPlans(c *fiber.Ctx) error {
	plans, err := repository.GetGlobalFactory().GetPlanRepository().GetActive()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleEstimate returns a fiat-to-crypto conversion preview. The rate cache
// is injected so repeated polls for the same pair do not hammer the gateway.
func HandleEstimate(rates *ratecache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		amount, err := strconv.ParseFloat(strings.TrimSpace(c.Query("amount")), 64)
		if err != nil || amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "amount must be a positive number"})
		}
		currencyFrom := strings.TrimSpace(c.Query("currency_from"))
		currencyTo := strings.TrimSpace(c.Query("currency_to"))
		if currencyFrom == "" || currencyTo == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "currency_from and currency_to are required"})
		}

		key := ratecache.Key(amount, currencyFrom, currencyTo)
		if cached, ok := rates.Get(key); ok {
			return c.JSON(estimateResponse(amount, currencyFrom, currencyTo, cached, true))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		est, err := gateway.NewClientFromEnv().GetEstimate(ctx, amount, currencyFrom, currencyTo)
		if err != nil {
			fiberlog.Error(fmt.Sprintf("estimate %s failed: %v", key, err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_error"})
		}
		rates.Put(key, est.EstimatedAmount)

		return c.JSON(estimateResponse(amount, currencyFrom, currencyTo, est.EstimatedAmount, false))
	}
}

func estimateResponse(amount float64, from, to string, estimated float64, cached bool) fiber.Map {
	return fiber.Map{
		"currency_from":    strings.ToLower(from),
		"currency_to":      strings.ToLower(to),
		"amount_from":      amount,
		"estimated_amount": estimated,
		"cached":           cached,
	}
}

// webhookCallbackURL builds the absolute IPN endpoint handed to the gateway.
func webhookCallbackURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		return ""
	}
	return base + "/api/v1/webhooks/nowpayments"
}
