package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"leadpilot/internal/utils"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailProvider implements Provider on top of the Gmail API.
type GmailProvider struct {
	address string
	tokens  TokenProvider
	logger  *utils.Logger
}

// NewGmailProvider creates a Gmail-backed provider for the given mailbox.
func NewGmailProvider(address string, tokens TokenProvider) *GmailProvider {
	return &GmailProvider{
		address: address,
		tokens:  tokens,
		logger:  utils.NewLogger("GmailProvider"),
	}
}

// Address returns the polled mailbox address.
func (p *GmailProvider) Address() string {
	return p.address
}

// service builds a Gmail API client with a fresh access token.
func (p *GmailProvider) service(ctx context.Context) (*gmail.Service, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	service, err := gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return service, nil
}

// FetchSince lists inbox messages received after since and returns them
// normalized, oldest first.
func (p *GmailProvider) FetchSince(ctx context.Context, since time.Time) ([]NormalizedMessage, error) {
	service, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("in:inbox after:%d", since.Unix())
	p.logger.Debug("Fetching Gmail messages with query: %s", query)

	listResp, err := service.Users.Messages.List("me").
		Q(query).
		LabelIds("INBOX").
		MaxResults(100).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list Gmail messages: %w", err)
	}

	var normalized []NormalizedMessage
	for _, ref := range listResp.Messages {
		msg, err := service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			p.logger.Warn("Failed to get message %s: %v", ref.Id, err)
			continue
		}

		norm := ExtractGmail(msg)
		// The after: operator has day granularity; filter precisely here.
		if !norm.SentAt.After(since) {
			continue
		}
		normalized = append(normalized, norm)
	}

	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].SentAt.Before(normalized[j].SentAt)
	})

	return normalized, nil
}

// Send delivers an outgoing message via the Gmail API. Threading rides on
// the raw RFC 5322 headers plus the vendor thread id.
func (p *GmailProvider) Send(ctx context.Context, out OutgoingMessage) (*SendResult, error) {
	service, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	raw := buildRawMessage(p.address, out)
	gmsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	if out.ThreadID != "" {
		gmsg.ThreadId = out.ThreadID
	}

	sent, err := service.Users.Messages.Send("me", gmsg).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send Gmail message: %w", err)
	}

	result := &SendResult{
		ProviderMessageID: sent.Id,
		ProviderThreadID:  sent.ThreadId,
	}

	// Gmail assigns the Message-ID header server-side; read it back so the
	// stored row can anchor future replies.
	full, err := service.Users.Messages.Get("me", sent.Id).
		Format("metadata").
		MetadataHeaders("Message-ID").
		Context(ctx).
		Do()
	if err != nil {
		p.logger.Warn("Failed to read back sent message %s: %v", sent.Id, err)
		return result, nil
	}
	if full.Payload != nil {
		for _, header := range full.Payload.Headers {
			if strings.EqualFold(header.Name, "Message-ID") {
				result.MessageIDHeader = strings.TrimSpace(header.Value)
			}
		}
	}

	return result, nil
}

// buildRawMessage assembles the RFC 5322 text for a Gmail raw send.
func buildRawMessage(from string, out OutgoingMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", out.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", out.Subject)
	if out.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", out.InReplyTo)
	}
	if out.References != "" {
		fmt.Fprintf(&b, "References: %s\r\n", out.References)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(out.Body)
	return b.String()
}
