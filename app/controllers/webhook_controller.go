package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/database"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleNOWPaymentsWebhook receives IPN callbacks from the payment gateway.
// The raw body must be captured before any parsing because the signature is
// computed over the exact bytes the gateway sent. Business outcomes (unknown
// invoice, intermediate status, duplicates) all acknowledge with 200 so the
// gateway stops redelivering; only a bad signature or an infrastructure
// failure returns non-2xx.
func HandleNOWPaymentsWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)
	signature := strings.TrimSpace(c.Get("x-nowpayments-sig"))
	secret := env.GetEnv("NOWPAYMENTS_IPN_SECRET", "")

	trackWebhookOutcome(counter.OutcomeReceived)

	// Reject before touching any state. A forged or corrupted delivery must
	// leave no trace beyond the counter.
	if !billing.VerifyIPNSignature(rawBody, signature, secret) {
		trackWebhookOutcome(counter.OutcomeRejectedBadSig)
		log.Warnf("[Billing] rejected callback with bad signature from %s", GetClientIP(c))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	payload, err := billing.ParseIPNPayload(rawBody)
	if err != nil {
		// Signed but unparseable. The gateway will not send anything better
		// on retry, so acknowledge and keep the body for inspection.
		trackWebhookOutcome(counter.OutcomeProcessingFailed)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.PaymentProviderNOWPayments,
		ProviderEventID: webhookEventID(payload),
		PaymentStatus:   payload.PaymentStatus,
		OrderRef:        payload.OrderID,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		trackWebhookOutcome(counter.OutcomeDuplicate)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	outcome, err := svc.ReconcilePayment(ctx, payload)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		trackWebhookOutcome(counter.OutcomeProcessingFailed)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
	}
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
	trackWebhookOutcome(string(outcome.Result))

	return c.Status(fiber.StatusOK).JSON(reconcileAck(outcome))
}

// webhookEventID derives a stable dedup key for a delivery. The gateway has
// no delivery id header, but it sends at most one callback per payment state,
// so payment_id plus payment_status identifies the event. Payloads without a
// payment_id fall back to a body hash inside RecordWebhookEvent.
func webhookEventID(p *billing.IPNPayload) string {
	paymentID := strings.TrimSpace(p.PaymentID.String())
	if paymentID == "" {
		return ""
	}
	return paymentID + ":" + strings.ToLower(strings.TrimSpace(p.PaymentStatus))
}

func reconcileAck(outcome *billing.ReconcileOutcome) fiber.Map {
	ack := fiber.Map{"ok": true, "result": string(outcome.Result)}
	switch outcome.Result {
	case billing.ResultDuplicate:
		ack["duplicate"] = true
	case billing.ResultUnknownInvoice, billing.ResultInFlight:
		ack["ignored"] = true
	}
	return ack
}

// trackWebhookOutcome is fire-and-forget: counters must never fail a webhook.
func trackWebhookOutcome(outcome string) {
	_ = counter.AddWebhookOutcome(outcome)
}
