package services

import (
	"strings"
	"testing"
	"time"

	"leadpilot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeFreshMessage(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, _ := newTestRepos(db)
	composer := NewReplyComposer(messageRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	out, err := composer.Compose(lead, "Quote", "Hello Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", out.To)
	assert.Equal(t, "Quote", out.Subject)
	assert.Empty(t, out.InReplyTo)
	assert.Empty(t, out.References)
	assert.Empty(t, out.ThreadID)
}

func TestComposeReplyThreading(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, _ := newTestRepos(db)
	composer := NewReplyComposer(messageRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	pid := "prov-1"
	require.NoError(t, messageRepo.Create(&models.Message{
		LeadID:            lead.ID,
		Direction:         models.DirectionReceived,
		Subject:           "Quote",
		ProviderMessageID: &pid,
		ProviderThreadID:  "T1",
		MessageIDHeader:   "<m1@example.com>",
		FromAddress:       "alice@example.com",
		SentAt:            time.Now(),
	}))

	out, err := composer.Compose(lead, "", "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, "Re: Quote", out.Subject)
	assert.Equal(t, "T1", out.ThreadID)
	assert.Equal(t, "<m1@example.com>", out.InReplyTo)
	assert.Equal(t, "<m1@example.com>", out.References)
	assert.Equal(t, "prov-1", out.ReplyToProviderMessageID)

	// A caller-supplied subject is still a threaded reply and gains the
	// same single prefix.
	out, err = composer.Compose(lead, "Quote", "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, "Re: Quote", out.Subject)

	out, err = composer.Compose(lead, "Re: Hello", "Thanks!")
	require.NoError(t, err)
	assert.Equal(t, "Re: Hello", out.Subject)
}

func TestComposeReferencesGrowth(t *testing.T) {
	db := newTestDB(t)
	leadRepo, messageRepo, _ := newTestRepos(db)
	composer := NewReplyComposer(messageRepo)

	lead := createLead(t, leadRepo, "Alice", "alice@example.com")

	// Build a thread message by message; the Nth message's stored chain
	// holds exactly the N-1 prior Message-IDs, oldest first.
	base := time.Now().Add(-time.Hour)
	chain := ""
	for n := 1; n <= 5; n++ {
		out, err := composer.Compose(lead, "", "body")
		require.NoError(t, err)

		ids := strings.Fields(out.References)
		assert.Len(t, ids, n-1)
		assert.Equal(t, chain, out.References)

		messageID := "<m" + strings.Repeat("i", n) + "@example.com>"
		pid := "prov-" + messageID
		require.NoError(t, messageRepo.Create(&models.Message{
			LeadID:            lead.ID,
			Direction:         models.DirectionSent,
			Subject:           "Quote",
			ProviderMessageID: &pid,
			ProviderThreadID:  "T1",
			MessageIDHeader:   messageID,
			InReplyTo:         out.InReplyTo,
			References:        out.References,
			FromAddress:       "me@example.com",
			SentAt:            base.Add(time.Duration(n) * time.Minute),
		}))

		if chain == "" {
			chain = messageID
		} else {
			chain += " " + messageID
		}
	}
}

func TestReplySubjectIdempotent(t *testing.T) {
	assert.Equal(t, "Re: Quote", replySubject("Quote", ""))
	assert.Equal(t, "Re: Quote", replySubject("Re: Quote", ""))
	assert.Equal(t, "RE: Quote", replySubject("RE: Quote", ""))
	assert.Equal(t, "re: quote", replySubject("re: quote", ""))
	assert.Equal(t, "Re: Custom", replySubject("Quote", "Custom"))
	assert.Equal(t, "Re: Custom", replySubject("Quote", "Re: Custom"))
	assert.Equal(t, "RE: custom", replySubject("Quote", "RE: custom"))
}

func TestAppendReference(t *testing.T) {
	assert.Equal(t, "<a>", appendReference("", "<a>"))
	assert.Equal(t, "<a> <b>", appendReference("<a>", "<b>"))
	assert.Equal(t, "<a> <b>", appendReference("<a> <b>", "<b>"))
	assert.Equal(t, "<a>", appendReference("<a>", ""))
}
