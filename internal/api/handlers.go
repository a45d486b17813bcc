package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/services"
	"leadpilot/internal/utils"

	"github.com/gorilla/mux"
)

// APIHandler aggregates the dependencies of the lead-facing endpoints.
type APIHandler struct {
	leadRepo         *repository.LeadRepository
	companyRepo      *repository.CompanyRepository
	messageRepo      *repository.MessageRepository
	notificationRepo *repository.NotificationRepository
	inventoryRepo    *repository.InventoryRepository
	mailer           *services.MailerService
	ai               *services.AIService
	importer         *services.LeadImporter
	logger           *utils.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(
	leadRepo *repository.LeadRepository,
	companyRepo *repository.CompanyRepository,
	messageRepo *repository.MessageRepository,
	notificationRepo *repository.NotificationRepository,
	inventoryRepo *repository.InventoryRepository,
	mailer *services.MailerService,
	ai *services.AIService,
	importer *services.LeadImporter,
) *APIHandler {
	return &APIHandler{
		leadRepo:         leadRepo,
		companyRepo:      companyRepo,
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		inventoryRepo:    inventoryRepo,
		mailer:           mailer,
		ai:               ai,
		importer:         importer,
		logger:           utils.NewLogger("API"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// HealthCheck responds with service health status
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateLeadHandler creates a lead
// @Summary Create lead
// @Tags leads
// @Accept json
// @Produce json
// @Param request body LeadRequest true "Lead"
// @Success 201 {object} models.Lead
// @Router /api/leads [post]
func (h *APIHandler) CreateLeadHandler(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	status := models.StatusNew
	if req.Status != "" {
		status = models.LeadStatus(req.Status)
		if !models.IsValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	lead := &models.Lead{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Subject:    req.Subject,
		Details:    req.Details,
		Notes:      req.Notes,
		Status:     status,
		CompanyID:  req.CompanyID,
		AssigneeID: req.AssigneeID,
	}
	if err := h.leadRepo.Create(lead); err != nil {
		h.logger.Error("Failed to create lead: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create lead")
		return
	}

	writeJSON(w, http.StatusCreated, lead)
}

// ListLeadsHandler lists leads with optional filters
// @Summary List leads
// @Tags leads
// @Produce json
// @Param status query string false "Filter by status"
// @Param companyId query int false "Filter by company"
// @Param search query string false "Search name/email"
// @Success 200 {object} ListResponse
// @Router /api/leads [get]
func (h *APIHandler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	options := repository.LeadListOptions{
		Status: models.LeadStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	if v, err := strconv.ParseUint(q.Get("companyId"), 10, 32); err == nil {
		options.CompanyID = uint(v)
	}
	if v, err := strconv.ParseUint(q.Get("assigneeId"), 10, 32); err == nil {
		options.Assignee = uint(v)
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		options.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		options.Offset = v
	}

	leads, total, err := h.leadRepo.List(options)
	if err != nil {
		h.logger.Error("Failed to list leads: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Items: leads, Total: total})
}

// GetLeadHandler retrieves one lead
// @Summary Get lead
// @Tags leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Lead
// @Router /api/leads/{id} [get]
func (h *APIHandler) GetLeadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.leadRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

// UpdateLeadHandler updates a lead
// @Summary Update lead
// @Tags leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body LeadRequest true "Lead"
// @Success 200 {object} models.Lead
// @Router /api/leads/{id} [put]
func (h *APIHandler) UpdateLeadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.leadRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != "" {
		lead.Name = req.Name
	}
	if req.Email != "" {
		lead.Email = req.Email
	}
	lead.Phone = req.Phone
	lead.Subject = req.Subject
	lead.Details = req.Details
	lead.Notes = req.Notes
	lead.CompanyID = req.CompanyID
	lead.AssigneeID = req.AssigneeID
	if req.Status != "" {
		status := models.LeadStatus(req.Status)
		if !models.IsValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		lead.Status = status
	}

	if err := h.leadRepo.Update(lead); err != nil {
		h.logger.Error("Failed to update lead %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update lead")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

// UpdateLeadStatusHandler updates only a lead's status
// @Summary Update lead status
// @Tags leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} models.Lead
// @Router /api/leads/{id}/status [patch]
func (h *APIHandler) UpdateLeadStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := models.LeadStatus(req.Status)
	if !models.IsValidStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.leadRepo.UpdateStatus(id, status); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	lead, err := h.leadRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// DeleteLeadHandler deletes a lead with its correspondence
// @Summary Delete lead
// @Tags leads
// @Param id path int true "Lead ID"
// @Success 204
// @Router /api/leads/{id} [delete]
func (h *APIHandler) DeleteLeadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.leadRepo.GetByID(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	if err := h.leadRepo.Delete(id); err != nil {
		h.logger.Error("Failed to delete lead %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete lead")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportLeadsHandler imports leads from an uploaded .xlsx file
// @Summary Import leads from spreadsheet
// @Tags leads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} services.ImportResult
// @Router /api/leads/import [post]
func (h *APIHandler) ImportLeadsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	result, err := h.importer.Import(file)
	if err != nil {
		h.logger.Error("Lead import failed: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetLeadMessagesHandler lists a lead's correspondence, newest first
// @Summary List lead messages
// @Tags leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} ListResponse
// @Router /api/leads/{id}/messages [get]
func (h *APIHandler) GetLeadMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.leadRepo.GetByID(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	msgs, err := h.messageRepo.GetByLead(id, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	total, err := h.messageRepo.CountByLead(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count messages")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Items: msgs, Total: total})
}

// ReplyLeadHandler composes and sends a reply in the lead's thread
// @Summary Send reply to lead
// @Tags leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body ReplyRequest true "Reply"
// @Success 201 {object} models.Message
// @Router /api/leads/{id}/reply [post]
func (h *APIHandler) ReplyLeadHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}

	msg, err := h.mailer.SendReply(r.Context(), id, req.AccountID, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("Failed to send reply to lead %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "Failed to send reply")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// DraftReplyHandler generates an AI reply draft for a lead
// @Summary Draft AI reply
// @Tags leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body DraftRequest true "Draft instruction"
// @Success 200 {object} DraftResponse
// @Router /api/leads/{id}/draft [post]
func (h *APIHandler) DraftReplyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.leadRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.ai.DraftReply(r.Context(), lead, req.Instruction)
	if err != nil {
		h.logger.Error("Failed to draft reply for lead %d: %v", id, err)
		writeError(w, http.StatusBadGateway, "Failed to generate draft")
		return
	}

	writeJSON(w, http.StatusOK, DraftResponse{Draft: draft})
}
