package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// inviteCodeRepository implements the InviteCodeRepository interface
type inviteCodeRepository struct {
	db *gorm.DB
}

// NewInviteCodeRepository creates a new invite code repository instance
func NewInviteCodeRepository(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepository{db: db}
}

// Create creates a new invite code in the database
func (r *inviteCodeRepository) Create(code *models.InviteCode) error {
	return r.db.Create(code).Error
}

// GetByID retrieves an invite code by its ID
func (r *inviteCodeRepository) GetByID(id uint) (*models.InviteCode, error) {
	var code models.InviteCode
	err := r.db.First(&code, id).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// GetByCode retrieves an invite code by its normalized code string
func (r *inviteCodeRepository) GetByCode(code string) (*models.InviteCode, error) {
	var ic models.InviteCode
	err := r.db.Where("code = ?", code).First(&ic).Error
	if err != nil {
		return nil, err
	}
	return &ic, nil
}

// Update updates an existing invite code in the database
func (r *inviteCodeRepository) Update(code *models.InviteCode) error {
	return r.db.Save(code).Error
}

// List retrieves invite codes with pagination
func (r *inviteCodeRepository) List(offset, limit int) ([]models.InviteCode, error) {
	var codes []models.InviteCode
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&codes).Error
	return codes, err
}

// Count returns the total number of invite codes
func (r *inviteCodeRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.InviteCode{}).Count(&count).Error
	return count, err
}
