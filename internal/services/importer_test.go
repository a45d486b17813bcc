package services

import (
	"bytes"
	"testing"

	"leadpilot/internal/models"
	"leadpilot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportLeads(t *testing.T) {
	db := newTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	importer := NewLeadImporter(leadRepo, companyRepo)

	buf := buildWorkbook(t, [][]interface{}{
		{"Name", "Email", "Phone", "Company", "Details"},
		{"Alice", "alice@example.com", "555-0100", "Acme Corp", "Needs pricing"},
		{"Bob", "bob@example.com", "", "Acme Corp", ""},
		{"Carol", "carol@example.com", "", "", "No company"},
	})

	result, err := importer.Import(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	leads, total, err := leadRepo.List(repository.LeadListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, lead := range leads {
		assert.Equal(t, models.StatusNew, lead.Status)
	}

	// Both Acme rows share one company record.
	companies, err := companyRepo.List()
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Acme Corp", companies[0].Name)

	alice, err := leadRepo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, alice.CompanyID)
	assert.Equal(t, companies[0].ID, *alice.CompanyID)

	carol, err := leadRepo.GetByEmail("carol@example.com")
	require.NoError(t, err)
	assert.Nil(t, carol.CompanyID)
}

func TestImportSkipsIncompleteRows(t *testing.T) {
	db := newTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	importer := NewLeadImporter(leadRepo, companyRepo)

	buf := buildWorkbook(t, [][]interface{}{
		{"Name", "Email"},
		{"Alice", "alice@example.com"},
		{"", "missing-name@example.com"},
		{"Missing Email", ""},
	})

	result, err := importer.Import(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 2)
}

func TestImportRequiresColumns(t *testing.T) {
	db := newTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	importer := NewLeadImporter(leadRepo, companyRepo)

	buf := buildWorkbook(t, [][]interface{}{
		{"Name", "Phone"},
		{"Alice", "555-0100"},
	})

	_, err := importer.Import(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
