package services

import (
	"fmt"
	"time"

	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"

	"gorm.io/gorm"
)

// CorrespondenceService records inbound and outbound correspondence.
//
// The message row and the lead status change commit in one transaction.
// Notification creation is best-effort afterwards; BackfillNotifications
// heals any rows a crash left unnotified.
type CorrespondenceService struct {
	messageRepo      *repository.MessageRepository
	leadRepo         *repository.LeadRepository
	notificationRepo *repository.NotificationRepository
	logger           *utils.Logger
}

// NewCorrespondenceService creates a new CorrespondenceService
func NewCorrespondenceService(
	messageRepo *repository.MessageRepository,
	leadRepo *repository.LeadRepository,
	notificationRepo *repository.NotificationRepository,
) *CorrespondenceService {
	return &CorrespondenceService{
		messageRepo:      messageRepo,
		leadRepo:         leadRepo,
		notificationRepo: notificationRepo,
		logger:           utils.NewLogger("CorrespondenceService"),
	}
}

// RecordInbound stores one fetched message against a lead. Returns the
// stored row, or (nil, nil) when the message is already stored (the
// idempotency check on the vendor message id).
//
// Within the transaction the lead's status moves to Replied. A failure
// anywhere rolls both back, so a message row never lands without its
// status change.
func (s *CorrespondenceService) RecordInbound(lead *models.Lead, norm mail.NormalizedMessage) (*models.Message, error) {
	if norm.ProviderMessageID != "" {
		exists, err := s.messageRepo.ExistsByProviderMessageID(norm.ProviderMessageID)
		if err != nil {
			return nil, fmt.Errorf("dedupe check failed: %w", err)
		}
		if exists {
			s.logger.Debug("Message %s already stored, skipping", norm.ProviderMessageID)
			return nil, nil
		}
	}

	msg := &models.Message{
		LeadID:           lead.ID,
		Direction:        models.DirectionReceived,
		Subject:          norm.Subject,
		Body:             norm.BodyText,
		ProviderThreadID: norm.ProviderThreadID,
		MessageIDHeader:  norm.MessageIDHeader,
		InReplyTo:        norm.InReplyTo,
		References:       norm.References,
		FromAddress:      norm.SenderAddress,
		SentAt:           norm.SentAt,
	}
	if norm.ProviderMessageID != "" {
		id := norm.ProviderMessageID
		msg.ProviderMessageID = &id
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	err := s.leadRepo.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := s.messageRepo.CreateTx(tx, msg); err != nil {
			return err
		}
		return tx.Model(&models.Lead{}).Where("id = ?", lead.ID).
			Updates(map[string]interface{}{"status": models.StatusReplied, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record inbound message: %w", err)
	}

	s.notify(lead, msg)

	s.logger.Info("Recorded inbound message %d for lead %d (%s)", msg.ID, lead.ID, norm.SenderAddress)
	return msg, nil
}

// RecordOutbound stores a sent message against a lead.
func (s *CorrespondenceService) RecordOutbound(lead *models.Lead, out mail.OutgoingMessage, result *mail.SendResult, fromAddress string) (*models.Message, error) {
	msg := &models.Message{
		LeadID:      lead.ID,
		Direction:   models.DirectionSent,
		Subject:     out.Subject,
		Body:        out.Body,
		InReplyTo:   out.InReplyTo,
		References:  out.References,
		FromAddress: fromAddress,
		ToAddress:   out.To,
		SentAt:      time.Now(),
	}
	if result != nil {
		if result.ProviderMessageID != "" {
			id := result.ProviderMessageID
			msg.ProviderMessageID = &id
		}
		msg.ProviderThreadID = result.ProviderThreadID
		msg.MessageIDHeader = result.MessageIDHeader
	}

	if err := s.messageRepo.Create(msg); err != nil {
		return nil, fmt.Errorf("failed to record outbound message: %w", err)
	}

	s.logger.Info("Recorded outbound message %d for lead %d (%s)", msg.ID, lead.ID, out.To)
	return msg, nil
}

// notify creates the new-message notification. Failures are logged, not
// returned: the message row is the source of truth and the backfill pass
// will create the missing notification on the next cycle.
func (s *CorrespondenceService) notify(lead *models.Lead, msg *models.Message) {
	n := &models.Notification{
		LeadID:        lead.ID,
		MessageID:     msg.ID,
		LeadName:      lead.Name,
		SenderAddress: msg.FromAddress,
		Subject:       msg.Subject,
	}
	if err := s.notificationRepo.Create(n); err != nil {
		s.logger.Warn("Failed to create notification for message %d: %v", msg.ID, err)
	}
}

// BackfillNotifications creates notifications for received messages that
// have none. Returns the number created.
func (s *CorrespondenceService) BackfillNotifications(limit int) (int, error) {
	msgs, err := s.notificationRepo.FindUnnotifiedReceivedMessages(limit)
	if err != nil {
		return 0, fmt.Errorf("failed to find unnotified messages: %w", err)
	}

	created := 0
	for i := range msgs {
		msg := &msgs[i]
		lead, err := s.leadRepo.GetByID(msg.LeadID)
		if err != nil {
			s.logger.Warn("Skipping backfill for message %d: %v", msg.ID, err)
			continue
		}
		n := &models.Notification{
			LeadID:        lead.ID,
			MessageID:     msg.ID,
			LeadName:      lead.Name,
			SenderAddress: msg.FromAddress,
			Subject:       msg.Subject,
		}
		if err := s.notificationRepo.Create(n); err != nil {
			s.logger.Warn("Failed to backfill notification for message %d: %v", msg.ID, err)
			continue
		}
		created++
	}

	if created > 0 {
		s.logger.Info("Backfilled %d missing notifications", created)
	}
	return created, nil
}

// PurgeDismissedNotifications deletes dismissed notifications older than
// the retention window.
func (s *CorrespondenceService) PurgeDismissedNotifications(retention time.Duration) (int64, error) {
	return s.notificationRepo.PurgeDismissedBefore(time.Now().Add(-retention))
}
