package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"
)

// NormalizedMessage is the provider-independent view of one mail message.
// Any header the provider did not supply is left empty; extraction never
// fails on missing headers.
type NormalizedMessage struct {
	SenderAddress     string
	SenderName        string
	Subject           string
	ProviderMessageID string
	ProviderThreadID  string
	MessageIDHeader   string
	InReplyTo         string
	References        string
	BodyText          string
	SentAt            time.Time
}

// OutgoingMessage carries everything a provider needs to send one message.
// The threading fields are empty for a fresh (non-reply) message.
type OutgoingMessage struct {
	To      string
	Subject string
	Body    string

	// Threading context, computed by the reply composer.
	ThreadID   string
	InReplyTo  string
	References string

	// Vendor-internal id of the message being replied to. Graph threads
	// replies through a createReply draft on this id; Gmail ignores it
	// and threads through the raw headers above.
	ReplyToProviderMessageID string
}

// SendResult reports the identifiers the provider assigned to a sent message.
type SendResult struct {
	ProviderMessageID string
	ProviderThreadID  string
	MessageIDHeader   string
}

// Provider is the vendor mail API boundary. Implementations exist for the
// Gmail API and Microsoft Graph; callers never see vendor types.
type Provider interface {
	// Address returns the mailbox address this provider polls and sends as.
	Address() string

	// FetchSince returns inbox messages received after the given time,
	// oldest first, already normalized.
	FetchSince(ctx context.Context, since time.Time) ([]NormalizedMessage, error)

	// Send delivers an outgoing message, threading it when the outgoing
	// message carries threading context.
	Send(ctx context.Context, out OutgoingMessage) (*SendResult, error)
}

// ProviderError wraps a vendor API failure with its HTTP status so the
// poller can decide whether to back off.
type ProviderError struct {
	StatusCode int
	Op         string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsThrottled reports whether err is a rate-limit/quota/unavailable class
// failure that should trigger exponential backoff. Everything else is
// logged and retried on the next regular tick without backoff.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return throttledStatus(pe.StatusCode)
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		// 403 from the Gmail API is quota exhaustion more often than a
		// real permission problem; treat it like a rate limit.
		return throttledStatus(ge.Code)
	}

	return false
}

func throttledStatus(code int) bool {
	switch code {
	case 403, 429, 500, 503:
		return true
	}
	return false
}
