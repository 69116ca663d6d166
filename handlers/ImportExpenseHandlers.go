package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"onquota/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxImportFileSize = 10 << 20 // 10 MB

// Import columns recognized in the header row. Headers are matched after
// trimming and lowercasing, so "Vendor", " vendor " and "VENDOR" all work.
var importHeaderAliases = map[string]string{
	"vendor":       "vendor",
	"merchant":     "vendor",
	"supplier":     "vendor",
	"amount":       "amount",
	"total":        "amount",
	"currency":     "currency",
	"date":         "date",
	"expense date": "date",
	"category":     "category",
	"notes":        "notes",
	"description":  "notes",
}

// normalizeImportHeader maps a raw header cell to its canonical column name,
// or "" when the column is not recognized.
func normalizeImportHeader(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	return importHeaderAliases[key]
}

// parseImportRows extracts expense rows from a tabular file. Supported
// formats are xlsx and tab-separated text; legacy binary xls must be
// re-saved as xlsx first.
func parseImportRows(filename string, reader io.Reader) ([]models.ExpenseImportRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return parseXLSXRows(reader)
	case ".tsv":
		return parseTSVRows(reader)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls files are not supported, save the file as .xlsx")
	default:
		return nil, fmt.Errorf("unsupported import format %q, allowed: xlsx, tsv", filepath.Ext(filename))
	}
}

func parseXLSXRows(reader io.Reader) ([]models.ExpenseImportRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rowsToImportRows(rows)
}

func parseTSVRows(reader io.Reader) ([]models.ExpenseImportRow, error) {
	r := csv.NewReader(reader)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tsv: %w", err)
		}
		rows = append(rows, record)
	}
	return rowsToImportRows(rows)
}

// rowsToImportRows maps a header row plus data rows into typed import rows.
// Rows with problems carry an Error instead of aborting the whole file.
func rowsToImportRows(rows [][]string) ([]models.ExpenseImportRow, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file has no data rows")
	}

	columns := map[string]int{}
	for i, cell := range rows[0] {
		if name := normalizeImportHeader(cell); name != "" {
			columns[name] = i
		}
	}
	if _, ok := columns["vendor"]; !ok {
		return nil, fmt.Errorf("missing required column: vendor")
	}
	if _, ok := columns["amount"]; !ok {
		return nil, fmt.Errorf("missing required column: amount")
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	titleCaser := cases.Title(language.Und)
	parsed := make([]models.ExpenseImportRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		out := models.ExpenseImportRow{
			RowNumber: i + 2,
			Vendor:    cell(row, "vendor"),
			Currency:  strings.ToUpper(cell(row, "currency")),
			Date:      cell(row, "date"),
			Category:  titleCaser.String(strings.ToLower(cell(row, "category"))),
			Notes:     cell(row, "notes"),
		}

		empty := out.Vendor == "" && cell(row, "amount") == "" && out.Date == ""
		if empty {
			continue
		}

		if out.Vendor == "" {
			out.Error = "vendor is required"
		} else if amountStr := cell(row, "amount"); amountStr == "" {
			out.Error = "amount is required"
		} else if amount, err := strconv.ParseFloat(strings.ReplaceAll(amountStr, ",", ""), 64); err != nil {
			out.Error = fmt.Sprintf("invalid amount %q", amountStr)
		} else if amount <= 0 {
			out.Error = "amount must be positive"
		} else {
			out.Amount = amount
		}

		if out.Error == "" && out.Date != "" {
			if _, err := time.Parse(quotationDateLayout, out.Date); err != nil {
				out.Error = fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", out.Date)
			}
		}
		if out.Currency == "" {
			out.Currency = "USD"
		}

		parsed = append(parsed, out)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("file has no data rows")
	}
	return parsed, nil
}

// ImportExpenses bulk-creates expenses from an uploaded xlsx or tsv file
// @Summary Import expenses from a spreadsheet
// @Tags Expenses
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Import file (xlsx, tsv)"
// @Success 200 {object} models.ExpenseImportResult
// @Failure 400 {object} models.ErrorResponse
// @Router /api/expense-import [post]
func ImportExpenses(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
			return
		}
		if fileHeader.Size > maxImportFileSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds the %d MB limit", maxImportFileSize>>20)})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer file.Close()

		rows, err := parseImportRows(fileHeader.Filename, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result := importExpenseRows(db, rows, session.UserID)

		c.JSON(http.StatusOK, result)

		logActivity(db, session, userName, "Expense", "Import",
			fmt.Sprintf("Imported %d expenses from %s (%d skipped)", result.Imported, fileHeader.Filename, result.Skipped),
			"expense", 0)
	}
}

func importExpenseRows(db *sql.DB, rows []models.ExpenseImportRow, userID int) *models.ExpenseImportResult {
	result := &models.ExpenseImportResult{Success: true}

	categoryIDs := map[string]int{}
	lookupCategory := func(name string) interface{} {
		if name == "" {
			return nil
		}
		if id, ok := categoryIDs[name]; ok {
			return id
		}
		var id int
		err := db.QueryRow(`SELECT id FROM expense_categories WHERE LOWER(name) = LOWER($1)`, name).Scan(&id)
		if err != nil {
			return nil
		}
		categoryIDs[name] = id
		return id
	}

	now := time.Now()
	for _, row := range rows {
		if row.Error != "" {
			result.Skipped++
			result.FailedRows = append(result.FailedRows, row)
			continue
		}

		expenseDate := now
		if row.Date != "" {
			expenseDate, _ = time.Parse(quotationDateLayout, row.Date)
		}

		_, err := db.Exec(`
			INSERT INTO expenses (amount, currency, expense_date, category_id, vendor, notes, approved, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8, $8)`,
			row.Amount, row.Currency, expenseDate, lookupCategory(row.Category), row.Vendor, row.Notes, userID, now)
		if err != nil {
			row.Error = "database insert failed"
			result.Skipped++
			result.FailedRows = append(result.FailedRows, row)
			continue
		}
		result.Imported++
	}

	result.Message = fmt.Sprintf("%d expenses imported, %d rows skipped", result.Imported, result.Skipped)
	if result.Imported == 0 {
		result.Success = false
	}
	return result
}
