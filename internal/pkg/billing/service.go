package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/license"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// LicenseSyncer is the license-authority surface billing depends on.
// CreateOrExtend failures are meaningful (the subscription gets flagged
// instead of activated); UpdateFromSubscription is defensive and never
// reports failure.
type LicenseSyncer interface {
	CreateOrExtend(ctx context.Context, in license.UpsertInput) (*license.License, error)
	UpdateFromSubscription(ctx context.Context, in license.UpdateInput)
}

// ReconcileResult names the terminal outcome of one webhook delivery. Every
// result except an infrastructure error is acknowledged with HTTP 200 so
// the gateway stops redelivering.
type ReconcileResult string

const (
	// ResultActivated: payment settled, subscription active, license issued.
	ResultActivated ReconcileResult = "activated"
	// ResultLicenseFailed: payment settled but the license authority
	// rejected issuance; subscription flagged for manual remediation.
	ResultLicenseFailed ReconcileResult = "license_failed"
	// ResultPaymentFailed: gateway reported a final failure, invoice closed.
	ResultPaymentFailed ReconcileResult = "payment_failed"
	// ResultDuplicate: the event was already applied, nothing changed.
	ResultDuplicate ReconcileResult = "duplicate"
	// ResultInFlight: intermediate gateway status, acknowledged and ignored.
	ResultInFlight ReconcileResult = "in_flight"
	// ResultUnknownInvoice: no invoice matches the event. Acknowledged so a
	// stale or foreign id cannot cause a retry storm.
	ResultUnknownInvoice ReconcileResult = "unknown_invoice"
)

// ReconcileOutcome reports what a delivery did.
type ReconcileOutcome struct {
	Result       ReconcileResult
	Invoice      *models.Invoice
	Subscription *models.Subscription
}

// Service reconciles verified gateway events into invoice and subscription
// state and keeps the external license authority in sync.
type Service struct {
	repo    Repository
	license LicenseSyncer
	now     func() time.Time
}

// NewService creates a billing service from an injected repository and
// license client.
func NewService(repo Repository, syncer LicenseSyncer) *Service {
	return &Service{repo: repo, license: syncer, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// env-configured license client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), license.NewClientFromEnv())
}

// ReconcilePayment applies one verified gateway event to local state. It is
// safe under concurrent redelivery of the same event: the pending->paid
// invoice transition is a conditional update, so exactly one delivery wins
// and every other one resolves to ResultDuplicate. Errors are only returned
// for infrastructure failures the gateway should retry.
func (s *Service) ReconcilePayment(ctx context.Context, p *IPNPayload) (*ReconcileOutcome, error) {
	invoice, err := s.findInvoice(p)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] callback for unknown invoice (order_id=%q payment_id=%q), acknowledging", p.OrderID, p.PaymentID.String())
			return &ReconcileOutcome{Result: ResultUnknownInvoice}, nil
		}
		return nil, err
	}

	switch ClassifyPaymentStatus(p.PaymentStatus) {
	case BucketIntermediate:
		log.Infof("[Billing] invoice %d: intermediate payment status %q, no state change", invoice.ID, p.PaymentStatus)
		return &ReconcileOutcome{Result: ResultInFlight, Invoice: invoice}, nil
	case BucketFinalFailure:
		return s.applyFinalFailure(invoice, p)
	default:
		return s.applySuccess(ctx, invoice, p)
	}
}

func (s *Service) findInvoice(p *IPNPayload) (*models.Invoice, error) {
	if orderRef := strings.TrimSpace(p.OrderID); orderRef != "" {
		invoice, err := s.repo.FindInvoiceByOrderRef(orderRef)
		if err == nil {
			return invoice, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	paymentID := strings.TrimSpace(p.PaymentID.String())
	if paymentID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return s.repo.FindInvoiceByProviderPaymentID(models.PaymentProviderNOWPayments, paymentID)
}

func (s *Service) applyFinalFailure(invoice *models.Invoice, p *IPNPayload) (*ReconcileOutcome, error) {
	if invoice.IsTerminal() {
		return &ReconcileOutcome{Result: ResultDuplicate, Invoice: invoice}, nil
	}

	toStatus := failureInvoiceStatus(p.PaymentStatus)
	changed, err := s.repo.MarkInvoiceFailed(invoice.ID, toStatus, p.PaymentID.String())
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost against a concurrent delivery that already closed it.
		return &ReconcileOutcome{Result: ResultDuplicate, Invoice: invoice}, nil
	}

	log.Infof("[Billing] invoice %d closed as %s (gateway status %q)", invoice.ID, toStatus, p.PaymentStatus)
	invoice.Status = toStatus
	return &ReconcileOutcome{Result: ResultPaymentFailed, Invoice: invoice}, nil
}

func (s *Service) applySuccess(ctx context.Context, invoice *models.Invoice, p *IPNPayload) (*ReconcileOutcome, error) {
	// Idempotency gate: a success event for an invoice that already settled
	// must not issue a second license or consume the invite again.
	if invoice.Status == models.InvoiceStatusPaid {
		return &ReconcileOutcome{Result: ResultDuplicate, Invoice: invoice}, nil
	}
	if invoice.IsTerminal() {
		// Success after the invoice was closed as failed/expired. Money may
		// have moved late; this needs a human, not an automatic reopen.
		log.Warnf("[Billing] invoice %d: success status %q on terminal invoice (%s), acknowledging without state change", invoice.ID, p.PaymentStatus, invoice.Status)
		return &ReconcileOutcome{Result: ResultDuplicate, Invoice: invoice}, nil
	}

	sub, err := s.repo.GetSubscriptionWithPlan(invoice.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Plan == nil {
		return nil, errors.New("subscription has no plan loaded")
	}

	now := s.now()
	window := ComputeWindow(sub.Plan, sub.StartsAt, sub.ExpiresAt, now)

	st := &Settlement{
		InvoiceID:         invoice.ID,
		ProviderPaymentID: strings.TrimSpace(p.PaymentID.String()),
		PayCurrency:       strings.TrimSpace(p.PayCurrency),
		PaidAt:            now,
		SubscriptionID:    sub.ID,
		StartsAt:          window.StartsAt,
		ExpiresAt:         window.ExpiresAt,
	}
	// Invite usage is consumed once, on the first activation only. Renewals
	// of an already-activated subscription never touch the counter.
	if !sub.HasBeenActivated() && sub.InviteCodeID != nil {
		st.ConsumeInviteCodeID = sub.InviteCodeID
	}

	won, err := s.repo.SettlePayment(st)
	if err != nil {
		return nil, err
	}
	if !won {
		return &ReconcileOutcome{Result: ResultDuplicate, Invoice: invoice}, nil
	}

	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = &now
	sub.Status = models.SubscriptionStatusActive
	sub.StartsAt = &window.StartsAt
	sub.ExpiresAt = window.ExpiresAt

	lic, err := s.license.CreateOrExtend(ctx, license.UpsertInput{
		UserEmail:         sub.UserEmail,
		PlanCode:          sub.Plan.Code,
		StartsAt:          window.StartsAt,
		ExpiresAt:         window.ExpiresAt,
		MaxRequestsPerDay: sub.Plan.MaxRequestsPerDay,
	})
	if err != nil {
		// The invoice stays paid: money was real. The subscription is
		// flagged instead of activated until an operator retries issuance.
		log.Errorf("[Billing] license issuance for subscription %d failed: %v", sub.ID, err)
		if markErr := s.repo.MarkSubscriptionLicenseFailed(sub.ID); markErr != nil {
			return nil, markErr
		}
		sub.Status = models.SubscriptionStatusLicenseFailed
		return &ReconcileOutcome{Result: ResultLicenseFailed, Invoice: invoice, Subscription: sub}, nil
	}

	if err := s.repo.StoreIssuedLicense(sub.ID, lic.Key); err != nil {
		return nil, err
	}
	sub.LicenseKey = lic.Key

	log.Infof("[Billing] invoice %d settled, subscription %d active until %s", invoice.ID, sub.ID, formatExpiry(sub.ExpiresAt))
	return &ReconcileOutcome{Result: ResultActivated, Invoice: invoice, Subscription: sub}, nil
}

// RecordWebhookEvent persists a verified gateway delivery idempotently.
// Returns created=false when the same (provider, event id) pair was stored
// before, which callers acknowledge as a duplicate without reprocessing.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PaymentWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		PaymentStatus:   strings.TrimSpace(in.PaymentStatus),
		OrderRef:        strings.TrimSpace(in.OrderRef),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "lifetime"
	}
	return t.Format(time.RFC3339)
}
