package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadpilot/internal/config"
	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider serves canned messages and records fetch calls.
type fakeProvider struct {
	address string
	msgs    []mail.NormalizedMessage
	err     error
	onFetch func(since time.Time)
	fetches int
}

func (p *fakeProvider) Address() string { return p.address }

func (p *fakeProvider) FetchSince(ctx context.Context, since time.Time) ([]mail.NormalizedMessage, error) {
	p.fetches++
	if p.onFetch != nil {
		p.onFetch(since)
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.msgs, nil
}

func (p *fakeProvider) Send(ctx context.Context, out mail.OutgoingMessage) (*mail.SendResult, error) {
	return nil, errors.New("not implemented")
}

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		PollInterval:          30 * time.Second,
		MaxBackoff:            300 * time.Second,
		NotificationRetention: 7 * 24 * time.Hour,
	}
}

func newTestPoller(t *testing.T, db *gorm.DB, provider mail.Provider) (*PollService, *repository.MailAccountRepository) {
	t.Helper()

	leadRepo, messageRepo, notificationRepo := newTestRepos(db)
	accountRepo := repository.NewMailAccountRepository(db)
	correspondence := NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)
	resolver := NewThreadResolver(messageRepo, leadRepo)

	poller := NewPollService(accountRepo, correspondence, resolver, testMailConfig())
	poller.SetProviderFactory(func(account *models.MailAccount) (mail.Provider, error) {
		return provider, nil
	})

	require.NoError(t, accountRepo.Create(&models.MailAccount{
		Provider:     models.ProviderGmail,
		Address:      "sales@example.com",
		ClientID:     "client",
		RefreshToken: "refresh",
		Enabled:      true,
	}))

	return poller, accountRepo
}

func TestRunOnceFirstContact(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	provider := &fakeProvider{
		address: "sales@example.com",
		msgs: []mail.NormalizedMessage{{
			SenderAddress:     "alice@example.com",
			Subject:           "Quote",
			ProviderMessageID: "prov-1",
			ProviderThreadID:  "T1",
			MessageIDHeader:   "<m1@example.com>",
			BodyText:          "Interested in pricing",
			SentAt:            time.Now(),
		}},
	}
	poller, accountRepo := newTestPoller(t, db, provider)

	require.NoError(t, poller.RunOnce(context.Background()))

	// The message landed on the lead, status moved, one notification.
	msgs, err := messageRepo.GetByLead(lead.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DirectionReceived, msgs[0].Direction)
	assert.Equal(t, "T1", msgs[0].ProviderThreadID)

	updated, err := leadRepo.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReplied, updated.Status)

	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)

	// Watermark advanced.
	accounts, err := accountRepo.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.NotNil(t, accounts[0].LastSyncAt)
}

func TestRunOnceThreadedReply(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, _ := newTestRepos(db)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	// Prior outbound in thread T1.
	pid := "prov-1"
	require.NoError(t, messageRepo.Create(&models.Message{
		LeadID:            lead.ID,
		Direction:         models.DirectionSent,
		Subject:           "Quote",
		ProviderMessageID: &pid,
		ProviderThreadID:  "T1",
		MessageIDHeader:   "<m1@example.com>",
		FromAddress:       "alice@example.com",
		SentAt:            time.Now().Add(-time.Hour),
	}))

	provider := &fakeProvider{
		address: "sales@example.com",
		msgs: []mail.NormalizedMessage{{
			SenderAddress:     "alice@example.com",
			Subject:           "Re: Quote",
			ProviderMessageID: "prov-2",
			ProviderThreadID:  "T1",
			MessageIDHeader:   "<m2@example.com>",
			InReplyTo:         "<m1@example.com>",
			References:        "<m1@example.com>",
			SentAt:            time.Now(),
		}},
	}
	poller, _ := newTestPoller(t, db, provider)

	require.NoError(t, poller.RunOnce(context.Background()))

	msgs, err := messageRepo.GetByLead(lead.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// Newest first: the inbound reply carries the thread headers.
	reply := msgs[0]
	assert.Equal(t, models.DirectionReceived, reply.Direction)
	assert.Equal(t, "Re: Quote", reply.Subject)
	assert.Equal(t, "T1", reply.ProviderThreadID)
	assert.Equal(t, "<m1@example.com>", reply.InReplyTo)
	assert.Equal(t, "<m1@example.com>", reply.References)
}

func TestRunOnceUnmatchedDropped(t *testing.T) {
	db := newTestDB(t)
	leadRepo, _, _ := newTestRepos(db)

	createLead(t, leadRepo, "Alice", "alice@example.com")

	provider := &fakeProvider{
		address: "sales@example.com",
		msgs: []mail.NormalizedMessage{{
			SenderAddress:     "stranger@example.com",
			Subject:           "Spam",
			ProviderMessageID: "prov-9",
			SentAt:            time.Now(),
		}},
	}
	poller, accountRepo := newTestPoller(t, db, provider)

	require.NoError(t, poller.RunOnce(context.Background()))

	// Nothing stored, but the cycle succeeded and the window advanced.
	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	accounts, err := accountRepo.List()
	require.NoError(t, err)
	assert.NotNil(t, accounts[0].LastSyncAt)
}

func TestRunOnceRefetchIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, notificationRepo := newTestRepos(db)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	provider := &fakeProvider{
		address: "sales@example.com",
		msgs: []mail.NormalizedMessage{{
			SenderAddress:     "alice@example.com",
			Subject:           "Quote",
			ProviderMessageID: "prov-1",
			SentAt:            time.Now(),
		}},
	}
	poller, _ := newTestPoller(t, db, provider)

	require.NoError(t, poller.RunOnce(context.Background()))
	require.NoError(t, poller.RunOnce(context.Background()))

	count, err := messageRepo.CountByLead(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	notifications, err := notificationRepo.ListActive(0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestRunOnceGuard(t *testing.T) {
	db := newTestDB(t)
	leadRepo, _, _ := newTestRepos(db)
	createLead(t, leadRepo, "Alice", "alice@example.com")

	var poller *PollService
	var nestedErr error
	provider := &fakeProvider{
		address: "sales@example.com",
		onFetch: func(time.Time) {
			// A second cycle requested mid-fetch must be rejected.
			nestedErr = poller.RunOnce(context.Background())
		},
	}
	poller, _ = newTestPoller(t, db, provider)

	require.NoError(t, poller.RunOnce(context.Background()))
	assert.ErrorIs(t, nestedErr, ErrSyncInProgress)
}

func TestFetchErrorKeepsWatermarkAndBacksOff(t *testing.T) {
	db := newTestDB(t)
	leadRepo, _, _ := newTestRepos(db)
	createLead(t, leadRepo, "Alice", "alice@example.com")

	provider := &fakeProvider{
		address: "sales@example.com",
		err:     &mail.ProviderError{StatusCode: 429, Op: "list", Err: errors.New("rate limited")},
	}
	poller, accountRepo := newTestPoller(t, db, provider)

	prev := time.Duration(0)
	for i := 1; i <= 9; i++ {
		require.Error(t, poller.RunOnce(context.Background()))

		status := poller.Status()
		assert.Equal(t, i, status.ConsecutiveErrors)

		delay, err := time.ParseDuration(status.NextDelay)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, delay, prev)
		assert.LessOrEqual(t, delay, 300*time.Second)
		prev = delay
	}

	// The 10th failure resets the counter.
	require.Error(t, poller.RunOnce(context.Background()))
	assert.Equal(t, 0, poller.Status().ConsecutiveErrors)

	// Watermark never advanced through the failures.
	accounts, err := accountRepo.List()
	require.NoError(t, err)
	assert.Nil(t, accounts[0].LastSyncAt)

	// Recovery clears the error state.
	provider.err = nil
	require.NoError(t, poller.RunOnce(context.Background()))
	status := poller.Status()
	assert.Equal(t, 0, status.ConsecutiveErrors)
	assert.Empty(t, status.LastError)

	accounts, err = accountRepo.List()
	require.NoError(t, err)
	assert.NotNil(t, accounts[0].LastSyncAt)
}

func TestFetchErrorRefetchesSameWindow(t *testing.T) {
	db := newTestDB(t)
	leadRepo, _, _ := newTestRepos(db)
	createLead(t, leadRepo, "Alice", "alice@example.com")

	var sinces []time.Time
	provider := &fakeProvider{
		address: "sales@example.com",
		err:     errors.New("boom"),
		onFetch: func(since time.Time) {
			sinces = append(sinces, since)
		},
	}
	poller, _ := newTestPoller(t, db, provider)

	require.Error(t, poller.RunOnce(context.Background()))
	require.Error(t, poller.RunOnce(context.Background()))

	require.Len(t, sinces, 2)
	assert.True(t, sinces[0].Equal(sinces[1]))
}
