package services

import (
	"fmt"
	"testing"
	"time"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:services_test_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.Company{},
		&models.Lead{},
		&models.Message{},
		&models.Notification{},
		&models.InventoryItem{},
		&models.MailAccount{},
	))

	return db
}

// newTestRepos wires the repositories used by most service tests.
func newTestRepos(db *gorm.DB) (*repository.LeadRepository, *repository.MessageRepository, *repository.NotificationRepository) {
	return repository.NewLeadRepository(db),
		repository.NewMessageRepository(db),
		repository.NewNotificationRepository(db)
}

// createLead inserts a lead and returns it.
func createLead(t *testing.T, repo *repository.LeadRepository, name, email string) *models.Lead {
	t.Helper()
	lead := &models.Lead{Name: name, Email: email, Status: models.StatusNew}
	require.NoError(t, repo.Create(lead))
	return lead
}
