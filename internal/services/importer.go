package services

import (
	"fmt"
	"io"
	"strings"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"
	"leadpilot/internal/utils"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes one spreadsheet import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// LeadImporter loads leads from an .xlsx upload.
//
// The first row is the header; columns are matched by name
// (case-insensitive): name, email, phone, company, subject, details,
// notes. Name and email are required per row; rows missing either are
// skipped and reported.
type LeadImporter struct {
	leadRepo    *repository.LeadRepository
	companyRepo *repository.CompanyRepository
	logger      *utils.Logger
}

// NewLeadImporter creates a new LeadImporter
func NewLeadImporter(leadRepo *repository.LeadRepository, companyRepo *repository.CompanyRepository) *LeadImporter {
	return &LeadImporter{
		leadRepo:    leadRepo,
		companyRepo: companyRepo,
		logger:      utils.NewLogger("LeadImporter"),
	}
}

// Import reads the first sheet of the workbook and creates leads.
func (s *LeadImporter) Import(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}

	columns := mapColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("missing required column: name")
	}
	if _, ok := columns["email"]; !ok {
		return nil, fmt.Errorf("missing required column: email")
	}

	result := &ImportResult{}
	var leads []models.Lead

	for i, row := range rows[1:] {
		rowNum := i + 2

		name := cell(row, columns, "name")
		email := cell(row, columns, "email")
		if name == "" || email == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: name and email are required", rowNum))
			continue
		}

		lead := models.Lead{
			Name:    name,
			Email:   email,
			Phone:   cell(row, columns, "phone"),
			Subject: cell(row, columns, "subject"),
			Details: cell(row, columns, "details"),
			Notes:   cell(row, columns, "notes"),
			Status:  models.StatusNew,
		}

		if companyName := cell(row, columns, "company"); companyName != "" {
			company, err := s.companyRepo.GetOrCreateByName(companyName)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: company lookup failed: %v", rowNum, err))
				continue
			}
			lead.CompanyID = &company.ID
		}

		leads = append(leads, lead)
	}

	if err := s.leadRepo.CreateBatch(leads); err != nil {
		return nil, fmt.Errorf("failed to store leads: %w", err)
	}
	result.Imported = len(leads)

	s.logger.Info("Imported %d leads (%d skipped)", result.Imported, result.Skipped)
	return result, nil
}

// mapColumns maps lowercased header names to column indexes.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key != "" {
			columns[key] = i
		}
	}
	return columns
}

// cell returns the trimmed value of a named column for a row, or "".
func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
