package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"leadpilot/internal/utils"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphMessage mirrors the fields of a Microsoft Graph message resource
// this application reads. Everything else in the payload is ignored.
type GraphMessage struct {
	ID                     string               `json:"id"`
	ConversationID         string               `json:"conversationId"`
	Subject                string               `json:"subject"`
	BodyPreview            string               `json:"bodyPreview"`
	Body                   *GraphItemBody       `json:"body"`
	From                   *GraphRecipient      `json:"from"`
	ReceivedDateTime       time.Time            `json:"receivedDateTime"`
	InternetMessageID      string               `json:"internetMessageId"`
	InternetMessageHeaders []GraphMessageHeader `json:"internetMessageHeaders"`
}

// GraphItemBody is the body part of a Graph message.
type GraphItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// GraphRecipient wraps an address on a Graph message.
type GraphRecipient struct {
	EmailAddress GraphEmailAddress `json:"emailAddress"`
}

// GraphEmailAddress is a name/address pair.
type GraphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// GraphMessageHeader is one internet message header on a Graph message.
type GraphMessageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GraphProvider implements Provider on top of the Microsoft Graph REST API.
type GraphProvider struct {
	address string
	tokens  TokenProvider
	client  *http.Client
	logger  *utils.Logger
}

// NewGraphProvider creates a Graph-backed provider for the given mailbox.
func NewGraphProvider(address string, tokens TokenProvider) *GraphProvider {
	return &GraphProvider{
		address: address,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  utils.NewLogger("GraphProvider"),
	}
}

// Address returns the polled mailbox address.
func (p *GraphProvider) Address() string {
	return p.address
}

// FetchSince lists inbox messages received after since, oldest first.
// Graph list responses omit internetMessageHeaders, so each message is
// fetched individually after listing ids.
func (p *GraphProvider) FetchSince(ctx context.Context, since time.Time) ([]NormalizedMessage, error) {
	filter := fmt.Sprintf("receivedDateTime gt %s", since.UTC().Format(time.RFC3339))
	listURL := fmt.Sprintf("%s/me/mailFolders/inbox/messages?$filter=%s&$orderby=receivedDateTime asc&$top=100&$select=id",
		graphBaseURL, url.QueryEscape(filter))

	var listResp struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := p.get(ctx, listURL, &listResp); err != nil {
		return nil, err
	}

	var normalized []NormalizedMessage
	for _, ref := range listResp.Value {
		msgURL := fmt.Sprintf("%s/me/messages/%s?$select=id,conversationId,subject,bodyPreview,body,from,receivedDateTime,internetMessageId,internetMessageHeaders",
			graphBaseURL, url.PathEscape(ref.ID))

		var msg GraphMessage
		if err := p.get(ctx, msgURL, &msg); err != nil {
			p.logger.Warn("Failed to get message %s: %v", ref.ID, err)
			continue
		}
		normalized = append(normalized, ExtractGraph(&msg))
	}

	return normalized, nil
}

// Send delivers an outgoing message. Replies go through a createReply
// draft on the parent message so Graph keeps them in the conversation;
// fresh messages go through an ordinary draft. Either way the draft is
// sent and read back so the caller learns the assigned identifiers.
func (p *GraphProvider) Send(ctx context.Context, out OutgoingMessage) (*SendResult, error) {
	var draftID string
	var err error

	if out.ReplyToProviderMessageID != "" {
		draftID, err = p.createReplyDraft(ctx, out)
	} else {
		draftID, err = p.createDraft(ctx, out)
	}
	if err != nil {
		return nil, err
	}

	sendURL := fmt.Sprintf("%s/me/messages/%s/send", graphBaseURL, url.PathEscape(draftID))
	if err := p.post(ctx, sendURL, nil, nil); err != nil {
		return nil, err
	}

	// The message keeps its id when it moves to Sent Items.
	readURL := fmt.Sprintf("%s/me/messages/%s?$select=id,conversationId,internetMessageId",
		graphBaseURL, url.PathEscape(draftID))
	var sent GraphMessage
	if err := p.get(ctx, readURL, &sent); err != nil {
		p.logger.Warn("Failed to read back sent message %s: %v", draftID, err)
		return &SendResult{ProviderMessageID: draftID}, nil
	}

	return &SendResult{
		ProviderMessageID: sent.ID,
		ProviderThreadID:  sent.ConversationID,
		MessageIDHeader:   sent.InternetMessageID,
	}, nil
}

// createReplyDraft makes a reply draft under the parent message and
// replaces its subject/body with the composed content.
func (p *GraphProvider) createReplyDraft(ctx context.Context, out OutgoingMessage) (string, error) {
	replyURL := fmt.Sprintf("%s/me/messages/%s/createReply",
		graphBaseURL, url.PathEscape(out.ReplyToProviderMessageID))

	var draft GraphMessage
	if err := p.post(ctx, replyURL, nil, &draft); err != nil {
		return "", err
	}

	patch := map[string]interface{}{
		"subject": out.Subject,
		"body": map[string]string{
			"contentType": "text",
			"content":     out.Body,
		},
	}
	patchURL := fmt.Sprintf("%s/me/messages/%s", graphBaseURL, url.PathEscape(draft.ID))
	if err := p.patch(ctx, patchURL, patch); err != nil {
		return "", err
	}

	return draft.ID, nil
}

// createDraft makes a fresh draft message.
func (p *GraphProvider) createDraft(ctx context.Context, out OutgoingMessage) (string, error) {
	payload := map[string]interface{}{
		"subject": out.Subject,
		"body": map[string]string{
			"contentType": "text",
			"content":     out.Body,
		},
		"toRecipients": []map[string]interface{}{
			{"emailAddress": map[string]string{"address": out.To}},
		},
	}

	var draft GraphMessage
	if err := p.post(ctx, graphBaseURL+"/me/messages", payload, &draft); err != nil {
		return "", err
	}
	return draft.ID, nil
}

func (p *GraphProvider) get(ctx context.Context, rawURL string, into interface{}) error {
	return p.do(ctx, http.MethodGet, rawURL, nil, into)
}

func (p *GraphProvider) post(ctx context.Context, rawURL string, payload, into interface{}) error {
	return p.do(ctx, http.MethodPost, rawURL, payload, into)
}

func (p *GraphProvider) patch(ctx context.Context, rawURL string, payload interface{}) error {
	return p.do(ctx, http.MethodPatch, rawURL, payload, nil)
}

// do performs one authenticated Graph call and decodes the response.
func (p *GraphProvider) do(ctx context.Context, method, rawURL string, payload, into interface{}) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			StatusCode: resp.StatusCode,
			Op:         fmt.Sprintf("graph %s %s", method, rawURL),
			Err:        errors.New(graphErrorMessage(respBody)),
		}
	}

	if into != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, into); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// graphErrorMessage pulls the human-readable message out of a Graph error
// payload, falling back to the raw body.
func graphErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Sprintf("%s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return string(body)
}
