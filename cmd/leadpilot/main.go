package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpilot/internal/api"
	"leadpilot/internal/config"
	"leadpilot/internal/database"
	"leadpilot/internal/repository"
	"leadpilot/internal/services"
	"leadpilot/internal/utils"
)

// @title LeadPilot API
// @version 1.0
// @description Sales lead tracking with inbound email correlation.

// @host localhost:8080
// @BasePath /
func main() {
	mainLogger := utils.NewLogger("Main")
	mainLogger.Info("Starting LeadPilot")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	dbConfig := database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}
	if err := database.Initialize(dbConfig); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.GetDB()

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	mailAccountRepo := repository.NewMailAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	userSessionRepo := repository.NewUserSessionRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, userSessionRepo)
	resolver := services.NewThreadResolver(messageRepo, leadRepo)
	correspondence := services.NewCorrespondenceService(messageRepo, leadRepo, notificationRepo)
	composer := services.NewReplyComposer(messageRepo)
	mailer := services.NewMailerService(leadRepo, mailAccountRepo, composer, correspondence)
	aiService := services.NewAIService(cfg.OpenAI, messageRepo)
	importer := services.NewLeadImporter(leadRepo, companyRepo)
	poller := services.NewPollService(mailAccountRepo, correspondence, resolver, cfg.Mail)

	// Seed the initial admin account
	adminUser := os.Getenv("ADMIN_USERNAME")
	if adminUser == "" {
		adminUser = "admin"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin"
		mainLogger.Warn("ADMIN_PASSWORD not set, using default credentials")
	}
	if err := authService.EnsureAdminUser(adminUser, adminPassword); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Start the mailbox poller
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	// Periodic maintenance: purge old dismissed notifications and
	// expired sessions.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := correspondence.PurgeDismissedNotifications(cfg.Mail.NotificationRetention); err != nil {
					mainLogger.Warn("Notification purge failed: %v", err)
				}
				if _, err := authService.CleanupExpiredSessions(); err != nil {
					mainLogger.Warn("Session cleanup failed: %v", err)
				}
			}
		}
	}()

	// Initialize handlers and router
	apiHandler := api.NewAPIHandler(leadRepo, companyRepo, messageRepo, notificationRepo, inventoryRepo, mailer, aiService, importer)
	syncHandler := api.NewSyncHandler(poller, mailAccountRepo)
	authHandler := api.NewAuthHandler(authService)
	router := api.NewRouter(apiHandler, syncHandler, authHandler, authService)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: router,
	}

	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		mainLogger.Info("Server is running on http://%s", cfg.ServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-stop
	mainLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	poller.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error("Server shutdown failed: %v", err)
	}

	mainLogger.Info("Server stopped")
}
