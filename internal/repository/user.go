package repository

import (
	"errors"
	"time"

	"leadpilot/internal/models"

	"gorm.io/gorm"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List retrieves all users
func (r *UserRepository) List() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

// UpdateLastLogin stamps the user's last login time
func (r *UserRepository) UpdateLastLogin(id uint) error {
	now := time.Now()
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Update("last_login_at", now).Error
}

// UserSessionRepository handles database operations for UserSession
type UserSessionRepository struct {
	db *gorm.DB
}

// NewUserSessionRepository creates a new UserSessionRepository
func NewUserSessionRepository(db *gorm.DB) *UserSessionRepository {
	return &UserSessionRepository{db: db}
}

// Create creates a new session
func (r *UserSessionRepository) Create(session *models.UserSession) error {
	return r.db.Create(session).Error
}

// GetByToken retrieves a session with its user by token
func (r *UserSessionRepository) GetByToken(token string) (*models.UserSession, error) {
	var session models.UserSession
	err := r.db.Preload("User").Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// DeleteByToken removes a session (logout)
func (r *UserSessionRepository) DeleteByToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&models.UserSession{}).Error
}

// DeleteExpired removes sessions past their expiry
func (r *UserSessionRepository) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&models.UserSession{})
	return result.RowsAffected, result.Error
}
