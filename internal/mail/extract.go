package mail

import (
	"encoding/base64"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

// ExtractAddress unpacks the address part of a "Display Name <addr>"
// formatted header value. When no angle brackets are present the raw
// header value is returned as the address.
func ExtractAddress(header string) string {
	header = strings.TrimSpace(header)
	if i := strings.LastIndex(header, "<"); i >= 0 {
		if j := strings.Index(header[i:], ">"); j > 0 {
			return strings.TrimSpace(header[i+1 : i+j])
		}
	}
	return header
}

// ExtractDisplayName returns the display-name part of a formatted header
// value, or "" when the value is a bare address.
func ExtractDisplayName(header string) string {
	header = strings.TrimSpace(header)
	if i := strings.LastIndex(header, "<"); i > 0 {
		return strings.Trim(strings.TrimSpace(header[:i]), `"`)
	}
	return ""
}

// ExtractGmail normalizes a Gmail API message. Missing headers degrade to
// empty fields; extraction has no side effects.
func ExtractGmail(msg *gmail.Message) NormalizedMessage {
	norm := NormalizedMessage{
		ProviderMessageID: msg.Id,
		ProviderThreadID:  msg.ThreadId,
		SentAt:            time.Unix(0, msg.InternalDate*int64(time.Millisecond)),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch strings.ToLower(header.Name) {
			case "from":
				norm.SenderAddress = ExtractAddress(header.Value)
				norm.SenderName = ExtractDisplayName(header.Value)
			case "subject":
				norm.Subject = header.Value
			case "message-id":
				norm.MessageIDHeader = strings.TrimSpace(header.Value)
			case "in-reply-to":
				norm.InReplyTo = strings.TrimSpace(header.Value)
			case "references":
				norm.References = normalizeReferences(header.Value)
			case "date":
				if norm.SentAt.IsZero() {
					norm.SentAt = parseMailDate(header.Value)
				}
			}
		}
		norm.BodyText = extractGmailBody(msg.Payload)
	}

	if norm.BodyText == "" {
		norm.BodyText = msg.Snippet
	}

	return norm
}

// ExtractGraph normalizes a Microsoft Graph message.
func ExtractGraph(msg *GraphMessage) NormalizedMessage {
	norm := NormalizedMessage{
		ProviderMessageID: msg.ID,
		ProviderThreadID:  msg.ConversationID,
		Subject:           msg.Subject,
		MessageIDHeader:   strings.TrimSpace(msg.InternetMessageID),
		SentAt:            msg.ReceivedDateTime,
	}

	if msg.From != nil {
		norm.SenderAddress = msg.From.EmailAddress.Address
		norm.SenderName = msg.From.EmailAddress.Name
	}

	for _, header := range msg.InternetMessageHeaders {
		switch strings.ToLower(header.Name) {
		case "in-reply-to":
			norm.InReplyTo = strings.TrimSpace(header.Value)
		case "references":
			norm.References = normalizeReferences(header.Value)
		}
	}

	if msg.Body != nil && strings.EqualFold(msg.Body.ContentType, "text") {
		norm.BodyText = msg.Body.Content
	} else {
		norm.BodyText = msg.BodyPreview
	}

	return norm
}

// normalizeReferences collapses whitespace in a References header to the
// single-space-separated form the store expects.
func normalizeReferences(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// extractGmailBody walks the MIME tree for the first text/plain part.
func extractGmailBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" && !strings.HasPrefix(payload.MimeType, "text/html") {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}

	for _, part := range payload.Parts {
		if body := extractGmailBody(part); body != "" {
			return body
		}
	}

	return ""
}

// parseMailDate tries the date formats seen in the wild on Date headers.
func parseMailDate(value string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
