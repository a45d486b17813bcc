package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"
)

// BuildAccountProvider constructs the vendor client for a mail account,
// wiring token refresh persistence back to the account row.
func BuildAccountProvider(repo *repository.MailAccountRepository, account *models.MailAccount) (mail.Provider, error) {
	var seedExpiry time.Time
	if account.TokenExpiry != nil {
		seedExpiry = *account.TokenExpiry
	}
	persist := func(token string, expiry time.Time) error {
		return repo.UpdateTokens(account.ID, token, expiry)
	}

	switch account.Provider {
	case models.ProviderGmail:
		refresh := mail.GoogleRefreshFunc(account.ClientID, account.ClientSecret, account.RefreshToken)
		tokens := mail.NewCachedTokenProvider(account.AccessToken, seedExpiry, refresh, persist)
		return mail.NewGmailProvider(account.Address, tokens), nil
	case models.ProviderGraph:
		client := &http.Client{Timeout: 30 * time.Second}
		refresh := mail.GraphRefreshFunc(client, account.ClientID, account.ClientSecret, account.RefreshToken)
		tokens := mail.NewCachedTokenProvider(account.AccessToken, seedExpiry, refresh, persist)
		return mail.NewGraphProvider(account.Address, tokens), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", account.Provider)
	}
}

// MailerService composes and sends replies to leads.
type MailerService struct {
	leadRepo       *repository.LeadRepository
	accountRepo    *repository.MailAccountRepository
	composer       *ReplyComposer
	correspondence *CorrespondenceService
	factory        ProviderFactory
	logger         *utils.Logger
}

// NewMailerService creates a new MailerService
func NewMailerService(
	leadRepo *repository.LeadRepository,
	accountRepo *repository.MailAccountRepository,
	composer *ReplyComposer,
	correspondence *CorrespondenceService,
) *MailerService {
	s := &MailerService{
		leadRepo:       leadRepo,
		accountRepo:    accountRepo,
		composer:       composer,
		correspondence: correspondence,
		logger:         utils.NewLogger("MailerService"),
	}
	s.factory = func(account *models.MailAccount) (mail.Provider, error) {
		return BuildAccountProvider(s.accountRepo, account)
	}
	return s
}

// SetProviderFactory overrides how providers are constructed.
func (s *MailerService) SetProviderFactory(factory ProviderFactory) {
	s.factory = factory
}

// SendReply composes a reply in the lead's thread, sends it through the
// given account (or the first enabled account when accountID is zero),
// and records the sent row. A lead still marked New moves to Contacted.
func (s *MailerService) SendReply(ctx context.Context, leadID, accountID uint, subject, body string) (*models.Message, error) {
	lead, err := s.leadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}

	account, err := s.pickAccount(accountID)
	if err != nil {
		return nil, err
	}

	out, err := s.composer.Compose(lead, subject, body)
	if err != nil {
		return nil, err
	}

	provider, err := s.factory(account)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider: %w", err)
	}

	result, err := provider.Send(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}

	msg, err := s.correspondence.RecordOutbound(lead, out, result, account.Address)
	if err != nil {
		// Delivery already happened; the row is lost but the error must
		// not look like a failed send.
		s.logger.Error("Sent reply to %s but failed to record it: %v", out.To, err)
		return nil, err
	}

	if lead.Status == models.StatusNew {
		if err := s.leadRepo.UpdateStatus(lead.ID, models.StatusContacted); err != nil {
			s.logger.Warn("Failed to mark lead %d contacted: %v", lead.ID, err)
		}
	}

	return msg, nil
}

func (s *MailerService) pickAccount(accountID uint) (*models.MailAccount, error) {
	if accountID > 0 {
		return s.accountRepo.GetByID(accountID)
	}
	accounts, err := s.accountRepo.ListEnabled()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no enabled mail account configured")
	}
	return &accounts[0], nil
}
