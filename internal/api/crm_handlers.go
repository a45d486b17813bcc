package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"
)

// CreateCompanyHandler creates a company
// @Summary Create company
// @Tags companies
// @Accept json
// @Produce json
// @Param request body CompanyRequest true "Company"
// @Success 201 {object} models.Company
// @Router /api/companies [post]
func (h *APIHandler) CreateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	company := &models.Company{Name: req.Name, Domain: req.Domain, Notes: req.Notes}
	if err := h.companyRepo.Create(company); err != nil {
		h.logger.Error("Failed to create company: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create company")
		return
	}

	writeJSON(w, http.StatusCreated, company)
}

// ListCompaniesHandler lists all companies
// @Summary List companies
// @Tags companies
// @Produce json
// @Success 200 {array} models.Company
// @Router /api/companies [get]
func (h *APIHandler) ListCompaniesHandler(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companyRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// GetCompanyHandler retrieves one company
// @Summary Get company
// @Tags companies
// @Produce json
// @Param id path int true "Company ID"
// @Success 200 {object} models.Company
// @Router /api/companies/{id} [get]
func (h *APIHandler) GetCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	company, err := h.companyRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get company")
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// UpdateCompanyHandler updates a company
// @Summary Update company
// @Tags companies
// @Accept json
// @Produce json
// @Param id path int true "Company ID"
// @Param request body CompanyRequest true "Company"
// @Success 200 {object} models.Company
// @Router /api/companies/{id} [put]
func (h *APIHandler) UpdateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	company, err := h.companyRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get company")
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != "" {
		company.Name = req.Name
	}
	company.Domain = req.Domain
	company.Notes = req.Notes

	if err := h.companyRepo.Update(company); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update company")
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// DeleteCompanyHandler deletes a company; its leads keep existing
// @Summary Delete company
// @Tags companies
// @Param id path int true "Company ID"
// @Success 204
// @Router /api/companies/{id} [delete]
func (h *APIHandler) DeleteCompanyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.companyRepo.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete company")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInventoryItemHandler creates an inventory item
// @Summary Create inventory item
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body InventoryItemRequest true "Item"
// @Success 201 {object} models.InventoryItem
// @Router /api/inventory [post]
func (h *APIHandler) CreateInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	var req InventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.SKU == "" {
		writeError(w, http.StatusBadRequest, "name and sku are required")
		return
	}

	item := &models.InventoryItem{
		Name:      req.Name,
		SKU:       req.SKU,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Notes:     req.Notes,
	}
	if err := h.inventoryRepo.Create(item); err != nil {
		h.logger.Error("Failed to create inventory item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create inventory item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListInventoryHandler lists all inventory items
// @Summary List inventory
// @Tags inventory
// @Produce json
// @Success 200 {array} models.InventoryItem
// @Router /api/inventory [get]
func (h *APIHandler) ListInventoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list inventory")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetInventoryItemHandler retrieves one inventory item
// @Summary Get inventory item
// @Tags inventory
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} models.InventoryItem
// @Router /api/inventory/{id} [get]
func (h *APIHandler) GetInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.inventoryRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UpdateInventoryItemHandler updates an inventory item
// @Summary Update inventory item
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param request body InventoryItemRequest true "Item"
// @Success 200 {object} models.InventoryItem
// @Router /api/inventory/{id} [put]
func (h *APIHandler) UpdateInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.inventoryRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get item")
		return
	}

	var req InventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name != "" {
		item.Name = req.Name
	}
	if req.SKU != "" {
		item.SKU = req.SKU
	}
	item.Quantity = req.Quantity
	item.UnitPrice = req.UnitPrice
	item.Notes = req.Notes

	if err := h.inventoryRepo.Update(item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// AdjustInventoryHandler adjusts an item's stock quantity
// @Summary Adjust inventory quantity
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param request body AdjustQuantityRequest true "Delta"
// @Success 200 {object} models.InventoryItem
// @Router /api/inventory/{id}/adjust [post]
func (h *APIHandler) AdjustInventoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AdjustQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.inventoryRepo.AdjustQuantity(id, req.Delta); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to adjust quantity")
		return
	}

	item, err := h.inventoryRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteInventoryItemHandler deletes an inventory item
// @Summary Delete inventory item
// @Tags inventory
// @Param id path int true "Item ID"
// @Success 204
// @Router /api/inventory/{id} [delete]
func (h *APIHandler) DeleteInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.inventoryRepo.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotificationsHandler lists active notifications, newest first
// @Summary List active notifications
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Router /api/notifications [get]
func (h *APIHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.notificationRepo.ListActive(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// DismissNotificationHandler dismisses one notification
// @Summary Dismiss notification
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Router /api/notifications/{id}/dismiss [post]
func (h *APIHandler) DismissNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationRepo.Dismiss(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to dismiss notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DismissLeadNotificationsHandler dismisses every active notification
// for a lead
// @Summary Dismiss all notifications for a lead
// @Tags notifications
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} map[string]int64
// @Router /api/leads/{id}/notifications/dismiss [post]
func (h *APIHandler) DismissLeadNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dismissed, err := h.notificationRepo.DismissAllForLead(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to dismiss notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"dismissed": dismissed})
}
