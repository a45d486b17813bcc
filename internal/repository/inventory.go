package repository

import (
	"errors"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// InventoryRepository handles database operations for InventoryItem
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create creates a new inventory item
func (r *InventoryRepository) Create(item *models.InventoryItem) error {
	return r.db.Create(item).Error
}

// GetByID retrieves an inventory item by ID
func (r *InventoryRepository) GetByID(id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetBySKU retrieves an inventory item by SKU
func (r *InventoryRepository) GetBySKU(sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.Where("sku = ?", sku).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List retrieves all inventory items ordered by name
func (r *InventoryRepository) List() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.Order("name ASC").Find(&items).Error
	return items, err
}

// Update updates an inventory item
func (r *InventoryRepository) Update(item *models.InventoryItem) error {
	return r.db.Save(item).Error
}

// AdjustQuantity adds delta (possibly negative) to an item's quantity
func (r *InventoryRepository) AdjustQuantity(id uint, delta int) error {
	result := r.db.Model(&models.InventoryItem{}).Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete soft deletes an inventory item
func (r *InventoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.InventoryItem{}, id).Error
}
