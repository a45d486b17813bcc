package repository

import (
	"time"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository handles database operations for Notification
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// ListActive retrieves non-dismissed notifications, newest first
func (r *NotificationRepository) ListActive(limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Where("dismissed = ?", false).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// Dismiss marks a single notification as dismissed
func (r *NotificationRepository) Dismiss(id uint) error {
	now := time.Now()
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND dismissed = ?", id, false).
		Updates(map[string]interface{}{"dismissed": true, "dismissed_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissAllForLead marks every active notification for a lead as dismissed
func (r *NotificationRepository) DismissAllForLead(leadID uint) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.Notification{}).
		Where("lead_id = ? AND dismissed = ?", leadID, false).
		Updates(map[string]interface{}{"dismissed": true, "dismissed_at": now})
	return result.RowsAffected, result.Error
}

// PurgeDismissedBefore hard-deletes dismissed notifications older than the
// retention cutoff
func (r *NotificationRepository) PurgeDismissedBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("dismissed = ? AND dismissed_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// FindUnnotifiedReceivedMessages returns received messages that have no
// notification row. Notification creation is best-effort at ingestion time;
// this query backs the reconciliation pass that heals any gap.
func (r *NotificationRepository) FindUnnotifiedReceivedMessages(limit int) ([]models.Message, error) {
	var msgs []models.Message
	query := r.db.Model(&models.Message{}).
		Joins("LEFT JOIN notifications ON notifications.message_id = messages.id").
		Where("messages.direction = ? AND notifications.id IS NULL", models.DirectionReceived).
		Order("messages.sent_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&msgs).Error
	return msgs, err
}
