package services

import (
	"errors"
	"fmt"

	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"
)

// ThreadResolver decides which lead an inbound message belongs to.
// It is a pure read-side decision function; it never mutates state.
type ThreadResolver struct {
	messageRepo *repository.MessageRepository
	leadRepo    *repository.LeadRepository
	logger      *utils.Logger
}

// NewThreadResolver creates a new ThreadResolver
func NewThreadResolver(messageRepo *repository.MessageRepository, leadRepo *repository.LeadRepository) *ThreadResolver {
	return &ThreadResolver{
		messageRepo: messageRepo,
		leadRepo:    leadRepo,
		logger:      utils.NewLogger("ThreadResolver"),
	}
}

// Resolve runs the fallback chain and returns the matching lead, or nil
// when the message matches no lead:
//
//  1. A stored message with the same provider thread id AND the same
//     sender address resolves to that message's lead. The sender address
//     is required: external thread ids get reused across unrelated
//     senders, and matching on the id alone would attach a stranger's
//     mail to the wrong lead.
//  2. A lead whose stored email exactly equals the sender address.
//  3. No match.
func (r *ThreadResolver) Resolve(norm mail.NormalizedMessage) (*models.Lead, error) {
	if norm.SenderAddress == "" {
		return nil, nil
	}

	if norm.ProviderThreadID != "" {
		prior, err := r.messageRepo.GetByThreadAndSender(norm.ProviderThreadID, norm.SenderAddress)
		if err == nil {
			lead, err := r.leadRepo.GetByID(prior.LeadID)
			if err == nil {
				r.logger.Debug("Matched message %s to lead %d via thread %s",
					norm.ProviderMessageID, lead.ID, norm.ProviderThreadID)
				return lead, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lead lookup failed: %w", err)
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("thread lookup failed: %w", err)
		}
	}

	lead, err := r.leadRepo.GetByEmail(norm.SenderAddress)
	if err == nil {
		r.logger.Debug("Matched message %s to lead %d via sender address",
			norm.ProviderMessageID, lead.ID)
		return lead, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("email lookup failed: %w", err)
	}

	r.logger.Info("No lead matches sender %s (message %s); skipping",
		norm.SenderAddress, norm.ProviderMessageID)
	return nil, nil
}
