package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"leadpilot/internal/config"
	"leadpilot/internal/mail"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"
)

// ErrSyncInProgress is returned when a sync cycle is requested while one
// is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncState is the poller's lifecycle state.
type SyncState string

const (
	StateIdle       SyncState = "idle"
	StateFetching   SyncState = "fetching"
	StateProcessing SyncState = "processing"
)

// SyncStatus is a point-in-time snapshot of the poller.
type SyncStatus struct {
	State             SyncState  `json:"state"`
	LastRunAt         *time.Time `json:"lastRunAt,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	ConsecutiveErrors int        `json:"consecutiveErrors"`
	NextDelay         string     `json:"nextDelay"`
}

// ProviderFactory builds a mail.Provider for an account. Swappable so
// tests can inject a fake provider.
type ProviderFactory func(account *models.MailAccount) (mail.Provider, error)

// PollService drives the periodic mailbox fetch. One cycle fetches every
// enabled account since its watermark, routes each message through the
// resolver, and records the matches. The watermark only advances after
// the whole account cycle succeeds.
type PollService struct {
	accountRepo    *repository.MailAccountRepository
	correspondence *CorrespondenceService
	resolver       *ThreadResolver
	cfg            config.MailConfig
	factory        ProviderFactory
	logger         *utils.Logger

	mu                sync.Mutex
	state             SyncState
	running           bool
	lastRunAt         *time.Time
	lastError         string
	consecutiveErrors int

	stop chan struct{}
	done chan struct{}
}

// NewPollService creates a new PollService
func NewPollService(
	accountRepo *repository.MailAccountRepository,
	correspondence *CorrespondenceService,
	resolver *ThreadResolver,
	cfg config.MailConfig,
) *PollService {
	s := &PollService{
		accountRepo:    accountRepo,
		correspondence: correspondence,
		resolver:       resolver,
		cfg:            cfg,
		state:          StateIdle,
		logger:         utils.NewLogger("PollService"),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	s.factory = s.buildProvider
	return s
}

// SetProviderFactory overrides how providers are constructed.
func (s *PollService) SetProviderFactory(factory ProviderFactory) {
	s.factory = factory
}

// Start launches the polling loop in its own goroutine.
func (s *PollService) Start(ctx context.Context) {
	go s.loop(ctx)
	s.logger.Info("Poller started with interval %s", s.cfg.PollInterval)
}

// Stop signals the loop to exit and waits for the in-flight cycle.
func (s *PollService) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Poller stopped")
}

func (s *PollService) loop(ctx context.Context) {
	defer close(s.done)
	for {
		timer := time.NewTimer(s.nextDelay())
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			s.logger.Error("Sync cycle failed: %v", err)
		}
	}
}

// nextDelay returns the wait before the next cycle: the poll interval
// normally, exponential backoff while cycles keep failing.
func (s *PollService) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayLocked()
}

func (s *PollService) delayLocked() time.Duration {
	if s.consecutiveErrors == 0 {
		return s.cfg.PollInterval
	}
	backoff := time.Duration(math.Pow(2, float64(s.consecutiveErrors))) * time.Second
	if backoff > s.cfg.MaxBackoff {
		backoff = s.cfg.MaxBackoff
	}
	if backoff < s.cfg.PollInterval {
		return s.cfg.PollInterval
	}
	return backoff
}

// RunOnce executes one full sync cycle. Only one cycle runs at a time;
// a second caller gets ErrSyncInProgress instead of a queued cycle.
func (s *PollService) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	s.running = true
	s.state = StateFetching
	s.mu.Unlock()

	err := s.runCycle(ctx)

	s.mu.Lock()
	now := time.Now()
	s.lastRunAt = &now
	s.running = false
	s.state = StateIdle
	if err != nil {
		s.lastError = err.Error()
		// Only rate-limit/quota/unavailable failures back off; other
		// error classes retry on the normal cadence. After 10 straight
		// throttled failures the counter resets so a stale backoff
		// cannot stall polling indefinitely.
		if mail.IsThrottled(err) {
			s.consecutiveErrors++
			if s.consecutiveErrors >= 10 {
				s.logger.Warn("Resetting error counter after %d consecutive failures", s.consecutiveErrors)
				s.consecutiveErrors = 0
			}
		}
	} else {
		s.lastError = ""
		s.consecutiveErrors = 0
	}
	s.mu.Unlock()

	return err
}

// runCycle fetches and processes every enabled account, then runs the
// notification reconciliation pass.
func (s *PollService) runCycle(ctx context.Context) error {
	accounts, err := s.accountRepo.ListEnabled()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	var firstErr error
	for i := range accounts {
		if err := s.syncAccount(ctx, &accounts[i]); err != nil {
			s.logger.Error("Account %s sync failed: %v", accounts[i].Address, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.mu.Lock()
	s.state = StateProcessing
	s.mu.Unlock()

	if _, err := s.correspondence.BackfillNotifications(100); err != nil {
		s.logger.Warn("Notification backfill failed: %v", err)
	}

	return firstErr
}

// syncAccount fetches one mailbox since its watermark and records every
// message that resolves to a lead. Unmatched messages are dropped with a
// log line. The watermark advances to the fetch start time only when the
// whole pass succeeds; the dedupe check makes the re-fetch after an
// errored cycle harmless.
func (s *PollService) syncAccount(ctx context.Context, account *models.MailAccount) error {
	provider, err := s.factory(account)
	if err != nil {
		return fmt.Errorf("failed to build provider: %w", err)
	}

	since := account.CreatedAt
	if account.LastSyncAt != nil {
		since = *account.LastSyncAt
	}
	fetchStart := time.Now()

	messages, err := provider.FetchSince(ctx, since)
	if err != nil {
		if mail.IsThrottled(err) {
			s.logger.Warn("Provider throttled for %s: %v", account.Address, err)
		}
		return fmt.Errorf("fetch failed: %w", err)
	}

	s.mu.Lock()
	s.state = StateProcessing
	s.mu.Unlock()

	for _, norm := range messages {
		lead, err := s.resolver.Resolve(norm)
		if err != nil {
			return fmt.Errorf("resolve failed: %w", err)
		}
		if lead == nil {
			continue
		}
		if _, err := s.correspondence.RecordInbound(lead, norm); err != nil {
			return fmt.Errorf("record failed: %w", err)
		}
	}

	if err := s.accountRepo.UpdateWatermark(account.ID, fetchStart); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	s.logger.Debug("Synced %s: %d messages since %s", account.Address, len(messages), since.Format(time.RFC3339))
	return nil
}

// Status returns a snapshot of the poller state.
func (s *PollService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatus{
		State:             s.state,
		LastRunAt:         s.lastRunAt,
		LastError:         s.lastError,
		ConsecutiveErrors: s.consecutiveErrors,
		NextDelay:         s.delayLocked().String(),
	}
}

func (s *PollService) buildProvider(account *models.MailAccount) (mail.Provider, error) {
	return BuildAccountProvider(s.accountRepo, account)
}
