package services

import (
	"errors"
	"fmt"
	"strings"

	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
)

// ReplyComposer derives the threading headers for an outgoing message
// from a lead's stored correspondence.
type ReplyComposer struct {
	messageRepo *repository.MessageRepository
}

// NewReplyComposer creates a new ReplyComposer
func NewReplyComposer(messageRepo *repository.MessageRepository) *ReplyComposer {
	return &ReplyComposer{messageRepo: messageRepo}
}

// Compose builds an OutgoingMessage for the lead. When correspondence
// exists the newest message anchors the reply: its Message-ID becomes
// In-Reply-To and is appended to its stored References chain, its thread
// id carries over, and the subject (the caller's override or the prior
// subject) gains a single "Re: " prefix. When no correspondence exists
// the result is a fresh message with the given subject and no threading
// headers.
func (c *ReplyComposer) Compose(lead *models.Lead, subject, body string) (mail.OutgoingMessage, error) {
	out := mail.OutgoingMessage{
		To:      lead.Email,
		Subject: subject,
		Body:    body,
	}

	prior, err := c.messageRepo.GetLatestByLead(lead.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, nil
		}
		return out, fmt.Errorf("failed to load prior correspondence: %w", err)
	}

	out.Subject = replySubject(prior.Subject, subject)
	out.ThreadID = prior.ProviderThreadID
	out.InReplyTo = prior.MessageIDHeader
	out.References = appendReference(prior.References, prior.MessageIDHeader)
	if prior.ProviderMessageID != nil {
		out.ReplyToProviderMessageID = *prior.ProviderMessageID
	}

	return out, nil
}

// replySubject picks the reply subject: the caller's override when given,
// otherwise the prior subject, with exactly one "Re: " prefix either way.
// The prefix check is case-insensitive so "RE: Quote" is not re-prefixed.
func replySubject(prior, override string) string {
	subject := override
	if subject == "" {
		subject = prior
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// appendReference extends a References chain with one more Message-ID,
// skipping empty ids and ids already at the tail.
func appendReference(chain, messageID string) string {
	if messageID == "" {
		return chain
	}
	if chain == "" {
		return messageID
	}
	ids := strings.Fields(chain)
	if ids[len(ids)-1] == messageID {
		return chain
	}
	return chain + " " + messageID
}
