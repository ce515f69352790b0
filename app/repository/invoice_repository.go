package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// invoiceRepository implements the InvoiceRepository interface
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create creates a new invoice in the database
func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

// GetByID retrieves an invoice by its ID
func (r *invoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByOrderRef retrieves an invoice by the order reference we handed to
// the payment gateway
func (r *invoiceRepository) GetByOrderRef(orderRef string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("order_ref = ?", orderRef).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByProviderPaymentID retrieves an invoice by the gateway's payment id
func (r *invoiceRepository) GetByProviderPaymentID(provider, paymentID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.Where("payment_provider = ? AND provider_payment_id = ?", provider, paymentID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListBySubscriptionID retrieves all invoices for a subscription
func (r *invoiceRepository) ListBySubscriptionID(subscriptionID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("subscription_id = ?", subscriptionID).Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

// Update updates an existing invoice in the database
func (r *invoiceRepository) Update(invoice *models.Invoice) error {
	return r.db.Save(invoice).Error
}

// Count returns the total number of invoices
func (r *invoiceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).Count(&count).Error
	return count, err
}
