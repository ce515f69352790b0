package billing

import (
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations reconciliation and admin mutation
// run against. Settlement is transactional: the invoice transition, the
// subscription window and the invite consumption commit or roll back as one.
type Repository interface {
	FindInvoiceByOrderRef(orderRef string) (*models.Invoice, error)
	FindInvoiceByProviderPaymentID(provider, providerPaymentID string) (*models.Invoice, error)
	GetSubscriptionWithPlan(id uint) (*models.Subscription, error)
	GetInviteCodeByCode(code string) (*models.InviteCode, error)
	// MarkInvoiceFailed moves a pending invoice to a terminal failure status.
	// Returns false when the invoice was not pending anymore (already
	// settled or already failed), which callers treat as a no-op.
	MarkInvoiceFailed(invoiceID uint, toStatus, providerPaymentID string) (bool, error)
	// SettlePayment applies the full success transition. Returns false when
	// the invoice lost the pending->paid compare-and-swap to a concurrent
	// delivery; nothing is written in that case.
	SettlePayment(st *Settlement) (bool, error)
	// StoreIssuedLicense persists the license key and promotes the
	// subscription to active.
	StoreIssuedLicense(subscriptionID uint, licenseKey string) error
	// MarkSubscriptionLicenseFailed flags a paid subscription whose license
	// issuance was rejected by the authority.
	MarkSubscriptionLicenseFailed(subscriptionID uint) error
	SaveSubscription(sub *models.Subscription) error
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindInvoiceByOrderRef(orderRef string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("order_ref = ?", orderRef).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *gormRepository) FindInvoiceByProviderPaymentID(provider, providerPaymentID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("payment_provider = ? AND provider_payment_id = ?", provider, providerPaymentID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *gormRepository) GetSubscriptionWithPlan(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").Preload("InviteCode").First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetInviteCodeByCode(code string) (*models.InviteCode, error) {
	var ic models.InviteCode
	err := r.db.Where("code = ?", code).First(&ic).Error
	if err != nil {
		return nil, err
	}
	return &ic, nil
}

func (r *gormRepository) MarkInvoiceFailed(invoiceID uint, toStatus, providerPaymentID string) (bool, error) {
	updates := map[string]interface{}{
		"status": toStatus,
	}
	if providerPaymentID != "" {
		updates["provider_payment_id"] = providerPaymentID
	}
	res := r.db.Model(&models.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, models.InvoiceStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) SettlePayment(st *Settlement) (bool, error) {
	won := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		invoiceUpdates := map[string]interface{}{
			"status":  models.InvoiceStatusPaid,
			"paid_at": st.PaidAt,
		}
		if st.ProviderPaymentID != "" {
			invoiceUpdates["provider_payment_id"] = st.ProviderPaymentID
		}
		if st.PayCurrency != "" {
			invoiceUpdates["pay_currency"] = st.PayCurrency
		}

		// The serialization point: only one delivery can flip a pending
		// invoice to paid. Everyone else sees zero affected rows.
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", st.InvoiceID, models.InvoiceStatusPending).
			Updates(invoiceUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		subUpdates := map[string]interface{}{
			"status":     models.SubscriptionStatusActive,
			"starts_at":  st.StartsAt,
			"expires_at": st.ExpiresAt,
		}
		if err := tx.Model(&models.Subscription{}).
			Where("id = ?", st.SubscriptionID).
			Updates(subUpdates).Error; err != nil {
			return err
		}

		if st.ConsumeInviteCodeID != nil {
			// Guarded increment keeps used_count <= max_uses even when the
			// cap was hit between checkout and settlement. An exhausted code
			// does not block the settlement of a payment already made.
			if err := tx.Model(&models.InviteCode{}).
				Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", *st.ConsumeInviteCodeID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return won, err
}

func (r *gormRepository) StoreIssuedLicense(subscriptionID uint, licenseKey string) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"license_key": licenseKey,
			"status":      models.SubscriptionStatusActive,
		}).Error
}

func (r *gormRepository) MarkSubscriptionLicenseFailed(subscriptionID uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("status", models.SubscriptionStatusLicenseFailed).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
