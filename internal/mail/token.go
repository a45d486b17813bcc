package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"leadpilot/internal/utils"
)

const graphTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"

// TokenProvider yields a valid access token for a mail account.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// RefreshFunc exchanges a refresh token for a fresh access token.
type RefreshFunc func(ctx context.Context) (accessToken string, expiry time.Time, err error)

// PersistFunc stores a refreshed token so it survives restarts. Failures
// are non-fatal; the cached token still serves the current process.
type PersistFunc func(accessToken string, expiry time.Time) error

// CachedTokenProvider caches an access token and refreshes it shortly
// before expiry. All state lives behind a mutex; nothing is process-global.
type CachedTokenProvider struct {
	mu      sync.Mutex
	token   string
	expiry  time.Time
	skew    time.Duration
	refresh RefreshFunc
	persist PersistFunc
	logger  *utils.Logger
}

// NewCachedTokenProvider creates a token cache seeded with whatever token
// (possibly stale) is already stored for the account.
func NewCachedTokenProvider(seed string, seedExpiry time.Time, refresh RefreshFunc, persist PersistFunc) *CachedTokenProvider {
	return &CachedTokenProvider{
		token:   seed,
		expiry:  seedExpiry,
		skew:    5 * time.Minute,
		refresh: refresh,
		persist: persist,
		logger:  utils.NewLogger("TokenProvider"),
	}
}

// Token returns the cached access token, refreshing it first when it is
// expired or about to expire.
func (p *CachedTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && !p.expiry.IsZero() && time.Now().Before(p.expiry.Add(-p.skew)) {
		return p.token, nil
	}

	token, expiry, err := p.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	p.token = token
	p.expiry = expiry

	if p.persist != nil {
		if perr := p.persist(token, expiry); perr != nil {
			// Persistence is best-effort; the in-memory cache still holds.
			p.logger.Warn("Failed to persist refreshed token: %v", perr)
		}
	}

	return token, nil
}

// GoogleRefreshFunc builds a RefreshFunc for a Gmail account using the
// standard oauth2 flow against the Google endpoint.
func GoogleRefreshFunc(clientID, clientSecret, refreshToken string) RefreshFunc {
	return func(ctx context.Context) (string, time.Time, error) {
		config := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		}
		source := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		token, err := source.Token()
		if err != nil {
			return "", time.Time{}, err
		}
		return token.AccessToken, token.Expiry, nil
	}
}

// GraphRefreshFunc builds a RefreshFunc for a Microsoft Graph account.
// Graph token refresh goes through the common v2.0 endpoint with the
// Mail scopes plus offline_access.
func GraphRefreshFunc(client *http.Client, clientID, clientSecret, refreshToken string) RefreshFunc {
	return func(ctx context.Context) (string, time.Time, error) {
		data := url.Values{}
		data.Set("client_id", clientID)
		data.Set("client_secret", clientSecret)
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", refreshToken)
		data.Set("scope", "https://graph.microsoft.com/Mail.Read https://graph.microsoft.com/Mail.Send offline_access")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphTokenURL, strings.NewReader(data.Encode()))
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to refresh token: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to read response: %w", err)
		}

		var result struct {
			AccessToken      string `json:"access_token"`
			ExpiresIn        int    `json:"expires_in"`
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return "", time.Time{}, fmt.Errorf("failed to parse response: %w", err)
		}

		if result.Error != "" {
			return "", time.Time{}, fmt.Errorf("oauth2 error: %s - %s", result.Error, result.ErrorDescription)
		}
		if result.AccessToken == "" {
			return "", time.Time{}, fmt.Errorf("access_token not found in response")
		}

		expiry := time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
		return result.AccessToken, expiry, nil
	}
}
