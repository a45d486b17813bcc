package services

import (
	"testing"
	"time"

	"leadpilot/internal/mail"
	"leadpilot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInboundFirstContact(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	svc := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	msg, err := svc.RecordInbound(lead, mail.NormalizedMessage{
		SenderAddress:     "alice@example.com",
		Subject:           "Quote",
		ProviderMessageID: "prov-1",
		ProviderThreadID:  "T1",
		MessageIDHeader:   "<m1@example.com>",
		BodyText:          "Interested in pricing",
		SentAt:            time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.DirectionReceived, msg.Direction)

	// Status moved to Replied in the same transaction.
	updated, err := leadRepo.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReplied, updated.Status)

	// Exactly one notification for the new message.
	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, msg.ID, notifications[0].MessageID)
	assert.Equal(t, "Alice", notifications[0].LeadName)
	assert.Equal(t, "alice@example.com", notifications[0].SenderAddress)
}

func TestRecordInboundIdempotent(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	svc := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	norm := mail.NormalizedMessage{
		SenderAddress:     "alice@example.com",
		Subject:           "Quote",
		ProviderMessageID: "prov-1",
		SentAt:            time.Now(),
	}

	first, err := svc.RecordInbound(lead, norm)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Re-delivery of the same provider message id is a no-op.
	second, err := svc.RecordInbound(lead, norm)
	require.NoError(t, err)
	assert.Nil(t, second)

	count, err := messageRepo.CountByLead(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestRecordOutbound(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	svc := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	msg, err := svc.RecordOutbound(lead, mail.OutgoingMessage{
		To:         "alice@example.com",
		Subject:    "Re: Quote",
		Body:       "Here is the quote",
		InReplyTo:  "<m1@example.com>",
		References: "<m1@example.com>",
	}, &mail.SendResult{
		ProviderMessageID: "prov-2",
		ProviderThreadID:  "T1",
		MessageIDHeader:   "<m2@example.com>",
	}, "sales@example.com")
	require.NoError(t, err)

	assert.Equal(t, models.DirectionSent, msg.Direction)
	assert.Equal(t, "T1", msg.ProviderThreadID)
	assert.Equal(t, "<m2@example.com>", msg.MessageIDHeader)
	assert.Equal(t, "<m1@example.com>", msg.References)
	assert.Equal(t, "sales@example.com", msg.FromAddress)

	// Outbound mail never notifies.
	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestBackfillNotifications(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	svc := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	// A received row without its notification, as left by a crash
	// between commit and notify.
	pid := "prov-1"
	require.NoError(t, messageRepo.Create(&models.Message{
		LeadID:            lead.ID,
		Direction:         models.DirectionReceived,
		Subject:           "Quote",
		ProviderMessageID: &pid,
		FromAddress:       "alice@example.com",
		SentAt:            time.Now(),
	}))

	created, err := svc.BackfillNotifications(100)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// The pass is idempotent.
	created, err = svc.BackfillNotifications(100)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestPurgeDismissedNotifications(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	svc := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	msg, err := svc.RecordInbound(lead, mail.NormalizedMessage{
		SenderAddress:     "alice@example.com",
		ProviderMessageID: "prov-1",
		SentAt:            time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, msg)

	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.NoError(t, notificationRepo.Dismiss(notifications[0].ID))

	// Inside the retention window nothing is purged.
	purged, err := svc.PurgeDismissedNotifications(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)

	// A zero retention window purges everything dismissed.
	purged, err = svc.PurgeDismissedNotifications(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	// The message row itself is untouched.
	count, err := messageRepo.CountByLead(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
