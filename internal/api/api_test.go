package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadpilot/internal/config"
	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserSession{}, &models.Company{}, &models.Lead{},
		&models.Message{}, &models.Notification{}, &models.InventoryItem{}, &models.MailAccount{},
	))

	leadRepo := repository.NewLeadRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	mailAccountRepo := repository.NewMailAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)

	authService := services.NewAuthService(userRepo, sessionRepo)
	require.NoError(t, authService.EnsureAdminUser("admin", "secret"))

	resolver := services.NewThreadResolver(messageRepo, leadRepo)
	correspondence := services.NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)
	composer := services.NewReplyComposer(messageRepo)
	mailer := services.NewMailerService(leadRepo, mailAccountRepo, composer, correspondence)
	aiService := services.NewAIService(config.OpenAIConfig{}, messageRepo)
	importer := services.NewLeadImporter(leadRepo, companyRepo)
	poller := services.NewPollService(mailAccountRepo, correspondence, resolver, config.MailConfig{
		PollInterval: 30 * time.Second,
		MaxBackoff:   300 * time.Second,
	})

	handler := NewAPIHandler(leadRepo, companyRepo, messageRepo, notificationRepo, inventoryRepo, mailer, aiService, importer)
	syncHandler := NewSyncHandler(poller, mailAccountRepo)
	authHandler := NewAuthHandler(authService)
	router := NewRouter(handler, syncHandler, authHandler, authService)

	// Log in once and hand the token to the test.
	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "secret"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var login LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))

	return router, login.Token
}

func doJSON(t *testing.T, router http.Handler, token, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "", "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "", "GET", "/api/leads", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "bogus-token", "GET", "/api/leads", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeadCRUD(t *testing.T) {
	router, token := newTestServer(t)

	rec := doJSON(t, router, token, "POST", "/api/leads", LeadRequest{
		Name:  "Alice",
		Email: "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var lead models.Lead
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lead))
	assert.Equal(t, models.StatusNew, lead.Status)

	rec = doJSON(t, router, token, "GET", fmt.Sprintf("/api/leads/%d", lead.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, token, "PATCH", fmt.Sprintf("/api/leads/%d/status", lead.ID), StatusRequest{Status: "Qualified"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, token, "PATCH", fmt.Sprintf("/api/leads/%d/status", lead.ID), StatusRequest{Status: "Bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, token, "GET", "/api/leads?status=Qualified", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, int64(1), list.Total)

	rec = doJSON(t, router, token, "DELETE", fmt.Sprintf("/api/leads/%d", lead.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, token, "GET", fmt.Sprintf("/api/leads/%d", lead.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLeadValidation(t *testing.T) {
	router, token := newTestServer(t)

	rec := doJSON(t, router, token, "POST", "/api/leads", LeadRequest{Name: "No Email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, token, "POST", "/api/leads", LeadRequest{
		Name: "Alice", Email: "alice@example.com", Status: "Bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncStatusAndTrigger(t *testing.T) {
	router, token := newTestServer(t)

	rec := doJSON(t, router, token, "GET", "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status services.SyncStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, services.StateIdle, status.State)

	// No accounts registered; a manual cycle still succeeds.
	rec = doJSON(t, router, token, "POST", "/api/sync", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDismissUnknownNotification(t *testing.T) {
	router, token := newTestServer(t)

	rec := doJSON(t, router, token, "POST", "/api/notifications/42/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMailAccountValidation(t *testing.T) {
	router, token := newTestServer(t)

	rec := doJSON(t, router, token, "POST", "/api/mail-accounts", MailAccountRequest{
		Provider: "imap", Address: "a@b.c", ClientID: "x", RefreshToken: "y",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, token, "POST", "/api/mail-accounts", MailAccountRequest{
		Provider: "gmail", Address: "sales@example.com", ClientID: "client", RefreshToken: "refresh",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var account models.MailAccount
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&account))
	assert.True(t, account.Enabled)
}
