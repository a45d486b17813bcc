package services

import (
	"errors"
	"fmt"
	"time"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned for a bad username/password pair.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrSessionExpired is returned when a session token is unknown or past
// its expiry.
var ErrSessionExpired = errors.New("session expired or invalid")

const sessionTTL = 24 * time.Hour

// AuthService handles login, logout, and session validation.
type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.UserSessionRepository
	logger      *utils.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *repository.UserRepository, sessionRepo *repository.UserSessionRepository) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logger:      utils.NewLogger("AuthService"),
	}
}

// Login verifies the credentials and creates a session token.
func (s *AuthService) Login(username, password string) (*models.UserSession, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	session := &models.UserSession{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		s.logger.Warn("Failed to stamp last login for user %d: %v", user.ID, err)
	}
	session.User = *user

	s.logger.Info("User %s logged in", username)
	return session, nil
}

// ValidateSession resolves a token to its user, or ErrSessionExpired.
func (s *AuthService) ValidateSession(token string) (*models.User, error) {
	session, err := s.sessionRepo.GetByToken(token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if !session.IsSessionValid() {
		return nil, ErrSessionExpired
	}
	return &session.User, nil
}

// Logout removes the session for a token. Unknown tokens are a no-op.
func (s *AuthService) Logout(token string) error {
	return s.sessionRepo.DeleteByToken(token)
}

// CleanupExpiredSessions removes sessions past their expiry.
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	return s.sessionRepo.DeleteExpired()
}

// EnsureAdminUser seeds the initial admin account when no users exist.
func (s *AuthService) EnsureAdminUser(username, password string) error {
	users, err := s.userRepo.List()
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	admin := &models.User{
		Username:    username,
		Email:       username + "@localhost",
		DisplayName: "Administrator",
		IsActive:    true,
	}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("Seeded initial admin user %s", username)
	return nil
}
