package repository

import (
	"errors"
	"time"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// MailAccountRepository handles database operations for MailAccount
type MailAccountRepository struct {
	db *gorm.DB
}

// NewMailAccountRepository creates a new MailAccountRepository
func NewMailAccountRepository(db *gorm.DB) *MailAccountRepository {
	return &MailAccountRepository{db: db}
}

// Create creates a new mail account
func (r *MailAccountRepository) Create(account *models.MailAccount) error {
	return r.db.Create(account).Error
}

// GetByID retrieves a mail account by ID
func (r *MailAccountRepository) GetByID(id uint) (*models.MailAccount, error) {
	var account models.MailAccount
	err := r.db.First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// List retrieves all mail accounts
func (r *MailAccountRepository) List() ([]models.MailAccount, error) {
	var accounts []models.MailAccount
	err := r.db.Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// ListEnabled retrieves accounts the poller should fetch from
func (r *MailAccountRepository) ListEnabled() ([]models.MailAccount, error) {
	var accounts []models.MailAccount
	err := r.db.Where("enabled = ?", true).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// Update updates a mail account
func (r *MailAccountRepository) Update(account *models.MailAccount) error {
	return r.db.Save(account).Error
}

// UpdateTokens persists a refreshed access token and its expiry
func (r *MailAccountRepository) UpdateTokens(id uint, accessToken string, expiry time.Time) error {
	return r.db.Model(&models.MailAccount{}).Where("id = ?", id).
		Updates(map[string]interface{}{"access_token": accessToken, "token_expiry": expiry}).Error
}

// UpdateWatermark advances the fetch watermark after a successful cycle
func (r *MailAccountRepository) UpdateWatermark(id uint, syncedAt time.Time) error {
	return r.db.Model(&models.MailAccount{}).Where("id = ?", id).
		Update("last_sync_at", syncedAt).Error
}

// Delete removes a mail account
func (r *MailAccountRepository) Delete(id uint) error {
	return r.db.Delete(&models.MailAccount{}, id).Error
}
