package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uint) (*models.Plan, error)
	GetByCode(code string) (*models.Plan, error)
	GetActive() ([]models.Plan, error)
	Update(plan *models.Plan) error
	Count() (int64, error)
}

// InviteCodeRepository defines the interface for invite-code database
// operations. GetByCode expects an already normalized code.
type InviteCodeRepository interface {
	Create(code *models.InviteCode) error
	GetByID(id uint) (*models.InviteCode, error)
	GetByCode(code string) (*models.InviteCode, error)
	Update(code *models.InviteCode) error
	List(offset, limit int) ([]models.InviteCode, error)
	Count() (int64, error)
}

// SubscriptionRepository defines the interface for subscription-related
// database operations
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByIDWithPlan(id uint) (*models.Subscription, error)
	GetByLicenseKey(key string) (*models.Subscription, error)
	ListByUserEmail(email string) ([]models.Subscription, error)
	Update(sub *models.Subscription) error
	Count() (int64, error)
}

// InvoiceRepository defines the interface for invoice-related database
// operations
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uint) (*models.Invoice, error)
	GetByOrderRef(orderRef string) (*models.Invoice, error)
	GetByProviderPaymentID(provider, paymentID string) (*models.Invoice, error)
	ListBySubscriptionID(subscriptionID uint) ([]models.Invoice, error)
	Update(invoice *models.Invoice) error
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Plan         PlanRepository
	InviteCode   InviteCodeRepository
	Subscription SubscriptionRepository
	Invoice      InvoiceRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Plan:         NewPlanRepository(db),
		InviteCode:   NewInviteCodeRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Invoice:      NewInvoiceRepository(db),
	}
}
