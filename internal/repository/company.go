package repository

import (
	"errors"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// CompanyRepository handles database operations for Company
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create creates a new company
func (r *CompanyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(id uint) (*models.Company, error) {
	var company models.Company
	err := r.db.First(&company, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// GetByName retrieves a company by its exact name
func (r *CompanyRepository) GetByName(name string) (*models.Company, error) {
	var company models.Company
	err := r.db.Where("name = ?", name).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// GetOrCreateByName returns the company with the given name, creating it
// first if necessary (used by spreadsheet import)
func (r *CompanyRepository) GetOrCreateByName(name string) (*models.Company, error) {
	company, err := r.GetByName(name)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	company = &models.Company{Name: name}
	if err := r.db.Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

// List retrieves all companies ordered by name
func (r *CompanyRepository) List() ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Order("name ASC").Find(&companies).Error
	return companies, err
}

// Update updates a company
func (r *CompanyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

// Delete soft deletes a company; its leads keep existing with company unset
func (r *CompanyRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lead{}).Where("company_id = ?", id).
			Update("company_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Company{}, id).Error
	})
}
