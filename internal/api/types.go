package api

import (
	"time"

	"leadpilot/internal/models"
)

// LeadRequest is the request body for creating or updating a lead.
type LeadRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Details    string `json:"details,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status,omitempty"`
	CompanyID  *uint  `json:"companyId,omitempty"`
	AssigneeID *uint  `json:"assigneeId,omitempty"`
}

// StatusRequest is the request body for a status-only update.
type StatusRequest struct {
	Status string `json:"status"`
}

// ReplyRequest is the request body for sending a reply to a lead.
type ReplyRequest struct {
	AccountID uint   `json:"accountId,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// DraftRequest is the request body for AI reply drafting.
type DraftRequest struct {
	Instruction string `json:"instruction,omitempty"`
}

// DraftResponse carries a generated draft.
type DraftResponse struct {
	Draft string `json:"draft"`
}

// CompanyRequest is the request body for creating or updating a company.
type CompanyRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// InventoryItemRequest is the request body for creating or updating an
// inventory item.
type InventoryItemRequest struct {
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Notes     string  `json:"notes,omitempty"`
}

// AdjustQuantityRequest is the request body for a stock adjustment.
type AdjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// MailAccountRequest is the request body for registering a polled mailbox.
type MailAccountRequest struct {
	Provider     string `json:"provider"`
	Address      string `json:"address"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
	Enabled      *bool  `json:"enabled,omitempty"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token after a successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// ListResponse wraps a paginated collection.
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

// ErrorResponse is the error body every failed request returns.
type ErrorResponse struct {
	Error string `json:"error"`
}
