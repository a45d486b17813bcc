package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/services"
	"leadpilot/internal/utils"
)

// SyncHandler exposes the poller and mail account management.
type SyncHandler struct {
	poller      *services.PollService
	accountRepo *repository.MailAccountRepository
	logger      *utils.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(poller *services.PollService, accountRepo *repository.MailAccountRepository) *SyncHandler {
	return &SyncHandler{
		poller:      poller,
		accountRepo: accountRepo,
		logger:      utils.NewLogger("SyncHandler"),
	}
}

// TriggerSyncHandler runs one sync cycle immediately
// @Summary Trigger mailbox sync
// @Tags sync
// @Produce json
// @Success 200 {object} services.SyncStatus
// @Failure 409 {object} ErrorResponse
// @Router /api/sync [post]
func (h *SyncHandler) TriggerSyncHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.poller.RunOnce(r.Context()); err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "Sync already in progress")
			return
		}
		h.logger.Error("Manual sync failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}
	writeJSON(w, http.StatusOK, h.poller.Status())
}

// SyncStatusHandler reports the poller state
// @Summary Sync status
// @Tags sync
// @Produce json
// @Success 200 {object} services.SyncStatus
// @Router /api/sync/status [get]
func (h *SyncHandler) SyncStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.poller.Status())
}

// CreateMailAccountHandler registers a polled mailbox
// @Summary Create mail account
// @Tags mail-accounts
// @Accept json
// @Produce json
// @Param request body MailAccountRequest true "Account"
// @Success 201 {object} models.MailAccount
// @Router /api/mail-accounts [post]
func (h *SyncHandler) CreateMailAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req MailAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	provider := models.MailProviderType(req.Provider)
	if provider != models.ProviderGmail && provider != models.ProviderGraph {
		writeError(w, http.StatusBadRequest, "provider must be gmail or graph")
		return
	}
	if req.Address == "" || req.ClientID == "" || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "address, clientId and refreshToken are required")
		return
	}

	account := &models.MailAccount{
		Provider:     provider,
		Address:      req.Address,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RefreshToken: req.RefreshToken,
		Enabled:      true,
	}
	if req.Enabled != nil {
		account.Enabled = *req.Enabled
	}

	if err := h.accountRepo.Create(account); err != nil {
		h.logger.Error("Failed to create mail account: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create mail account")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// ListMailAccountsHandler lists registered mailboxes
// @Summary List mail accounts
// @Tags mail-accounts
// @Produce json
// @Success 200 {array} models.MailAccount
// @Router /api/mail-accounts [get]
func (h *SyncHandler) ListMailAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list mail accounts")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// UpdateMailAccountHandler updates a mailbox registration
// @Summary Update mail account
// @Tags mail-accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body MailAccountRequest true "Account"
// @Success 200 {object} models.MailAccount
// @Router /api/mail-accounts/{id} [put]
func (h *SyncHandler) UpdateMailAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.accountRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Mail account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get mail account")
		return
	}

	var req MailAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Address != "" {
		account.Address = req.Address
	}
	if req.ClientID != "" {
		account.ClientID = req.ClientID
	}
	if req.ClientSecret != "" {
		account.ClientSecret = req.ClientSecret
	}
	if req.RefreshToken != "" {
		account.RefreshToken = req.RefreshToken
		// New credentials invalidate the cached access token.
		account.AccessToken = ""
		account.TokenExpiry = nil
	}
	if req.Enabled != nil {
		account.Enabled = *req.Enabled
	}

	if err := h.accountRepo.Update(account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update mail account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteMailAccountHandler removes a mailbox registration
// @Summary Delete mail account
// @Tags mail-accounts
// @Param id path int true "Account ID"
// @Success 204
// @Router /api/mail-accounts/{id} [delete]
func (h *SyncHandler) DeleteMailAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.accountRepo.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete mail account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
