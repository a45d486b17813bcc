package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadpilot/internal/config"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"
)

// ChatCompletionRequest is the request body for an OpenAI-compatible
// chat completion call.
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature,omitempty"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
}

// ChatCompletionMessage is one message in a chat completion exchange.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response from a chat completion call.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

const draftSystemPrompt = `You are a sales assistant drafting a reply email on behalf of a sales representative.
Write a concise, friendly, professional reply in plain text. Do not include a subject line,
signature placeholders, or any commentary. Reply with the email body only.`

// AIService drafts reply emails through an OpenAI-compatible API.
type AIService struct {
	cfg         config.OpenAIConfig
	messageRepo *repository.MessageRepository
	client      *http.Client
	logger      *utils.Logger
}

// NewAIService creates a new AIService
func NewAIService(cfg config.OpenAIConfig, messageRepo *repository.MessageRepository) *AIService {
	return &AIService{
		cfg:         cfg,
		messageRepo: messageRepo,
		client:      &http.Client{Timeout: 240 * time.Second},
		logger:      utils.NewLogger("AIService"),
	}
}

// DraftReply generates a reply draft for a lead, grounded on the lead's
// recent correspondence plus an optional instruction from the caller.
func (s *AIService) DraftReply(ctx context.Context, lead *models.Lead, instruction string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", fmt.Errorf("OpenAI configuration is not set or API key is missing")
	}

	history, err := s.messageRepo.GetByLead(lead.ID, 10, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load correspondence: %w", err)
	}

	resp, err := s.call(ctx, []ChatCompletionMessage{
		{Role: "system", Content: draftSystemPrompt},
		{Role: "user", Content: buildDraftPrompt(lead, history, instruction)},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildDraftPrompt renders the lead context and conversation history,
// oldest first, into the user prompt.
func buildDraftPrompt(lead *models.Lead, history []models.Message, instruction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead: %s <%s>\n", lead.Name, lead.Email)
	if lead.Company != nil {
		fmt.Fprintf(&b, "Company: %s\n", lead.Company.Name)
	}
	if lead.Details != "" {
		fmt.Fprintf(&b, "Details: %s\n", lead.Details)
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far (oldest first):\n")
		for i := len(history) - 1; i >= 0; i-- {
			msg := history[i]
			role := "Us"
			if msg.Direction == models.DirectionReceived {
				role = "Lead"
			}
			fmt.Fprintf(&b, "--- %s (%s): %s\n%s\n", role, msg.SentAt.Format("2006-01-02"), msg.Subject, msg.Body)
		}
	}

	if instruction != "" {
		fmt.Fprintf(&b, "\nInstruction for this reply: %s\n", instruction)
	}
	b.WriteString("\nDraft the reply now.")
	return b.String()
}

// call performs one chat completion request.
func (s *AIService) call(ctx context.Context, messages []ChatCompletionMessage) (*ChatCompletionResponse, error) {
	reqBody := ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(s.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.cfg.APIKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp map[string]interface{}
		if err := json.Unmarshal(body, &errorResp); err == nil {
			if errorMsg, ok := errorResp["error"].(map[string]interface{}); ok {
				return nil, fmt.Errorf("OpenAI API error: %v", errorMsg["message"])
			}
		}
		return nil, fmt.Errorf("OpenAI API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var completionResp ChatCompletionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &completionResp, nil
}
