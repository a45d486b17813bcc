package models

import (
	"time"

	"gorm.io/gorm"
)

// LeadStatus defines the lifecycle state of a lead.
type LeadStatus string

const (
	StatusNew        LeadStatus = "New"
	StatusContacted  LeadStatus = "Contacted"
	StatusQualified  LeadStatus = "Qualified"
	StatusInProgress LeadStatus = "In Progress"
	StatusFollowUp   LeadStatus = "Follow-up"
	StatusReplied    LeadStatus = "Replied"
	StatusClosedWon  LeadStatus = "Closed Won"
	StatusClosedLost LeadStatus = "Closed Lost"
	StatusClosed     LeadStatus = "Closed"
)

// ValidStatuses lists every status accepted from the API.
var ValidStatuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusInProgress,
	StatusFollowUp, StatusReplied, StatusClosedWon, StatusClosedLost, StatusClosed,
}

// IsValidStatus reports whether s is a known lead status.
func IsValidStatus(s LeadStatus) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Company groups leads belonging to the same organization.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null;type:varchar(255)" json:"name"`
	Domain    string         `gorm:"index" json:"domain,omitempty"`
	Notes     string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Lead represents a prospective customer.
//
// Email is indexed but deliberately not unique: duplicate addresses are
// tolerated, and inbound matching picks the first stored lead with that
// address when no thread history exists.
type Lead struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"not null;type:varchar(255)" json:"name"`
	Email      string     `gorm:"index;not null;type:varchar(255)" json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Details    string     `gorm:"type:text" json:"details,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	Status     LeadStatus `gorm:"not null;default:'New';type:varchar(32)" json:"status"`
	CompanyID  *uint      `gorm:"index" json:"companyId,omitempty"`
	Company    *Company   `gorm:"foreignKey:CompanyID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"company,omitempty"`
	AssigneeID *uint      `gorm:"index" json:"assigneeId,omitempty"`
	Assignee   *User      `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"assignee,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// MessageDirection distinguishes sent from received correspondence.
type MessageDirection string

const (
	DirectionSent     MessageDirection = "sent"
	DirectionReceived MessageDirection = "received"
)

// Message is one unit of correspondence belonging to exactly one lead.
// Rows are immutable after creation and are removed only when their lead
// is deleted.
//
// ProviderMessageID is the vendor-internal id and is the dedupe key;
// MessageIDHeader is the RFC 5322 Message-ID used for client-side threading.
// References holds the ancestor Message-ID chain, space separated, oldest
// first.
type Message struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	LeadID            uint             `gorm:"not null;index" json:"leadId"`
	Lead              Lead             `gorm:"foreignKey:LeadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Direction         MessageDirection `gorm:"not null;type:varchar(16)" json:"direction"`
	Subject           string           `json:"subject"`
	Body              string           `gorm:"type:text" json:"body"`
	ProviderMessageID *string          `gorm:"uniqueIndex;type:varchar(512)" json:"providerMessageId,omitempty"`
	ProviderThreadID  string           `gorm:"index;type:varchar(512)" json:"providerThreadId,omitempty"`
	MessageIDHeader   string           `gorm:"index;type:varchar(512)" json:"messageIdHeader,omitempty"`
	InReplyTo         string           `gorm:"type:varchar(512)" json:"inReplyTo,omitempty"`
	References        string           `gorm:"type:text" json:"references,omitempty"`
	FromAddress       string           `gorm:"index;type:varchar(255)" json:"fromAddress"`
	ToAddress         string           `gorm:"type:varchar(255)" json:"toAddress"`
	SentAt            time.Time        `gorm:"index" json:"sentAt"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// Notification marks that a lead received a new message. Dismissed rows
// are garbage-collected after a retention window.
type Notification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LeadID        uint       `gorm:"not null;index" json:"leadId"`
	Lead          Lead       `gorm:"foreignKey:LeadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MessageID     uint       `gorm:"not null;uniqueIndex" json:"messageId"`
	LeadName      string     `gorm:"type:varchar(255)" json:"leadName"`
	SenderAddress string     `gorm:"type:varchar(255)" json:"senderAddress"`
	Subject       string     `json:"subject"`
	Dismissed     bool       `gorm:"default:false;index" json:"dismissed"`
	DismissedAt   *time.Time `json:"dismissedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// InventoryItem tracks a product that can be quoted to leads.
type InventoryItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;type:varchar(255)" json:"name"`
	SKU       string         `gorm:"uniqueIndex;not null;type:varchar(64)" json:"sku"`
	Quantity  int            `gorm:"default:0" json:"quantity"`
	UnitPrice float64        `gorm:"default:0" json:"unitPrice"`
	Notes     string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MailProviderType identifies the vendor API a mail account polls.
type MailProviderType string

const (
	ProviderGmail MailProviderType = "gmail"
	ProviderGraph MailProviderType = "graph"
)

// MailAccount is a polled mailbox and its OAuth2 credentials.
//
// LastSyncAt is the fetch watermark: it only advances after a fully
// successful fetch+process cycle, so an errored cycle re-fetches the
// same window (safe because ingestion is idempotent).
type MailAccount struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Provider     MailProviderType `gorm:"not null;type:varchar(16)" json:"provider"`
	Address      string           `gorm:"uniqueIndex;not null;type:varchar(255)" json:"address"`
	ClientID     string           `gorm:"not null" json:"clientId"`
	ClientSecret string           `gorm:"not null" json:"-"`
	RefreshToken string           `gorm:"type:text" json:"-"`
	AccessToken  string           `gorm:"type:text" json:"-"`
	TokenExpiry  *time.Time       `json:"-"`
	LastSyncAt   *time.Time       `json:"lastSyncAt,omitempty"`
	Enabled      bool             `gorm:"default:true" json:"enabled"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
