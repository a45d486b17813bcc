package repository

import (
	"errors"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message.
// Messages are append-only; there is deliberately no Update method.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message row
func (r *MessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// CreateTx inserts a new message row inside an existing transaction
func (r *MessageRepository) CreateTx(tx *gorm.DB, msg *models.Message) error {
	return tx.Create(msg).Error
}

// GetByProviderMessageID retrieves a message by its vendor-internal id
func (r *MessageRepository) GetByProviderMessageID(providerMessageID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.Where("provider_message_id = ?", providerMessageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ExistsByProviderMessageID reports whether a message with the given
// vendor-internal id is already stored (the dedupe check)
func (r *MessageRepository) ExistsByProviderMessageID(providerMessageID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("provider_message_id = ?", providerMessageID).
		Count(&count).Error
	return count > 0, err
}

// GetByThreadAndSender retrieves the most recent message carrying the given
// provider thread id AND sender address. Matching on thread id alone is not
// offered: the same external thread id can be reused across unrelated
// senders, and resolving on it without the address cross-contaminates leads.
func (r *MessageRepository) GetByThreadAndSender(threadID, senderAddress string) (*models.Message, error) {
	var msg models.Message
	err := r.db.
		Where("provider_thread_id = ? AND from_address = ?", threadID, senderAddress).
		Order("sent_at DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// GetByLead retrieves a lead's correspondence, newest first
func (r *MessageRepository) GetByLead(leadID uint, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	query := r.db.Where("lead_id = ?", leadID).Order("sent_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&msgs).Error
	return msgs, err
}

// GetLatestByLead retrieves the most recent message for a lead regardless
// of direction, or ErrNotFound when the lead has no correspondence
func (r *MessageRepository) GetLatestByLead(leadID uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.Where("lead_id = ?", leadID).Order("sent_at DESC").First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// CountByLead returns the number of stored messages for a lead
func (r *MessageRepository) CountByLead(leadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).Where("lead_id = ?", leadID).Count(&count).Error
	return count, err
}
