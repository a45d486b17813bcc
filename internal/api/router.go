package api

import (
	"net/http"

	"leadpilot/internal/services"
	"leadpilot/internal/utils"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates a new router with all the necessary routes.
func NewRouter(
	handler *APIHandler,
	syncHandler *SyncHandler,
	authHandler *AuthHandler,
	authService *services.AuthService,
) http.Handler {
	router := mux.NewRouter()
	logger := utils.NewLogger("HTTP")

	// Create API subrouter with /api prefix
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(LoggingMiddleware(logger))

	// Public endpoints
	apiRouter.HandleFunc("/health", HealthCheck).Methods("GET")
	apiRouter.HandleFunc("/auth/login", authHandler.LoginHandler).Methods("POST")

	// Everything else requires a session token
	protected := apiRouter.NewRoute().Subrouter()
	protected.Use(AuthMiddleware(authService))

	protected.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods("POST")
	protected.HandleFunc("/auth/me", authHandler.MeHandler).Methods("GET")

	// Leads
	protected.HandleFunc("/leads", handler.CreateLeadHandler).Methods("POST")
	protected.HandleFunc("/leads", handler.ListLeadsHandler).Methods("GET")
	protected.HandleFunc("/leads/import", handler.ImportLeadsHandler).Methods("POST")
	protected.HandleFunc("/leads/{id}", handler.GetLeadHandler).Methods("GET")
	protected.HandleFunc("/leads/{id}", handler.UpdateLeadHandler).Methods("PUT")
	protected.HandleFunc("/leads/{id}", handler.DeleteLeadHandler).Methods("DELETE")
	protected.HandleFunc("/leads/{id}/status", handler.UpdateLeadStatusHandler).Methods("PATCH")
	protected.HandleFunc("/leads/{id}/messages", handler.GetLeadMessagesHandler).Methods("GET")
	protected.HandleFunc("/leads/{id}/reply", handler.ReplyLeadHandler).Methods("POST")
	protected.HandleFunc("/leads/{id}/draft", handler.DraftReplyHandler).Methods("POST")
	protected.HandleFunc("/leads/{id}/notifications/dismiss", handler.DismissLeadNotificationsHandler).Methods("POST")

	// Companies
	protected.HandleFunc("/companies", handler.CreateCompanyHandler).Methods("POST")
	protected.HandleFunc("/companies", handler.ListCompaniesHandler).Methods("GET")
	protected.HandleFunc("/companies/{id}", handler.GetCompanyHandler).Methods("GET")
	protected.HandleFunc("/companies/{id}", handler.UpdateCompanyHandler).Methods("PUT")
	protected.HandleFunc("/companies/{id}", handler.DeleteCompanyHandler).Methods("DELETE")

	// Inventory
	protected.HandleFunc("/inventory", handler.CreateInventoryItemHandler).Methods("POST")
	protected.HandleFunc("/inventory", handler.ListInventoryHandler).Methods("GET")
	protected.HandleFunc("/inventory/{id}", handler.GetInventoryItemHandler).Methods("GET")
	protected.HandleFunc("/inventory/{id}", handler.UpdateInventoryItemHandler).Methods("PUT")
	protected.HandleFunc("/inventory/{id}", handler.DeleteInventoryItemHandler).Methods("DELETE")
	protected.HandleFunc("/inventory/{id}/adjust", handler.AdjustInventoryHandler).Methods("POST")

	// Notifications
	protected.HandleFunc("/notifications", handler.ListNotificationsHandler).Methods("GET")
	protected.HandleFunc("/notifications/{id}/dismiss", handler.DismissNotificationHandler).Methods("POST")

	// Sync and mail accounts
	protected.HandleFunc("/sync", syncHandler.TriggerSyncHandler).Methods("POST")
	protected.HandleFunc("/sync/status", syncHandler.SyncStatusHandler).Methods("GET")
	protected.HandleFunc("/mail-accounts", syncHandler.CreateMailAccountHandler).Methods("POST")
	protected.HandleFunc("/mail-accounts", syncHandler.ListMailAccountsHandler).Methods("GET")
	protected.HandleFunc("/mail-accounts/{id}", syncHandler.UpdateMailAccountHandler).Methods("PUT")
	protected.HandleFunc("/mail-accounts/{id}", syncHandler.DeleteMailAccountHandler).Methods("DELETE")

	// Swagger documentation
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	return enableCORS(router)
}
