package repository

import (
	"errors"
	"time"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// LeadRepository handles database operations for Lead
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new LeadRepository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create creates a new lead
func (r *LeadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

// CreateBatch creates multiple leads in a batch (spreadsheet import)
func (r *LeadRepository) CreateBatch(leads []models.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return r.db.CreateInBatches(leads, 100).Error
}

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(id uint) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.Preload("Company").Preload("Assignee").First(&lead, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// GetByEmail retrieves the oldest lead whose stored email exactly equals addr.
// The match is exact and case-sensitive as stored; duplicates are tolerated
// and the first created lead wins.
func (r *LeadRepository) GetByEmail(addr string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.Where("email = ?", addr).Order("id ASC").First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// LeadListOptions filters the lead listing
type LeadListOptions struct {
	Status    models.LeadStatus
	CompanyID uint
	Assignee  uint
	Search    string
	Limit     int
	Offset    int
}

// List retrieves leads matching the given options, newest first
func (r *LeadRepository) List(options LeadListOptions) ([]models.Lead, int64, error) {
	var leads []models.Lead
	var total int64

	query := r.db.Model(&models.Lead{})
	if options.Status != "" {
		query = query.Where("status = ?", options.Status)
	}
	if options.CompanyID > 0 {
		query = query.Where("company_id = ?", options.CompanyID)
	}
	if options.Assignee > 0 {
		query = query.Where("assignee_id = ?", options.Assignee)
	}
	if options.Search != "" {
		pattern := "%" + options.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Company").Order("created_at DESC")
	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	err := query.Find(&leads).Error
	return leads, total, err
}

// Update updates a lead
func (r *LeadRepository) Update(lead *models.Lead) error {
	return r.db.Save(lead).Error
}

// UpdateStatus updates only the status column
func (r *LeadRepository) UpdateStatus(id uint, status models.LeadStatus) error {
	return r.db.Model(&models.Lead{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

// Delete removes a lead together with its correspondence and notifications.
// Messages are owned by the lead, so they go in the same transaction.
func (r *LeadRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lead_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lead{}, id).Error
	})
}

// GetDB exposes the underlying handle for services that need transactions
func (r *LeadRepository) GetDB() *gorm.DB {
	return r.db
}
