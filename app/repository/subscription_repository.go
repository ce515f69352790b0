package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create creates a new subscription in the database
func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

// GetByID retrieves a subscription by its ID
func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByIDWithPlan retrieves a subscription with its plan and invite code
// preloaded
func (r *subscriptionRepository) GetByIDWithPlan(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").Preload("InviteCode").First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByLicenseKey retrieves a subscription by the license key issued for it
func (r *subscriptionRepository) GetByLicenseKey(key string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("license_key = ?", key).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUserEmail retrieves all subscriptions belonging to an email address
func (r *subscriptionRepository) ListByUserEmail(email string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_email = ?", email).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// Update updates an existing subscription in the database
func (r *subscriptionRepository) Update(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// Count returns the total number of subscriptions
func (r *subscriptionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).Count(&count).Error
	return count, err
}
