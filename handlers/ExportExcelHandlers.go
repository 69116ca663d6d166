package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"onquota/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportSalesControls writes a workbook of sales controls and their lines
// @Summary Export sales controls to Excel
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse
// @Router /api/exports/sales-controls [get]
func ExportSalesControls(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		if _, _, err := GetSessionDetails(db, sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		where := ""
		args := []interface{}{}
		if status := c.Query("status"); status != "" {
			where = "WHERE sc.status = $1"
			args = append(args, status)
		}

		rows, err := db.Query(selectSalesControlBase+" "+where+" ORDER BY sc.created_at DESC", args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales controls", "details": err.Error()})
			return
		}
		defer rows.Close()

		controls := []models.SalesControl{}
		for rows.Next() {
			sc, err := scanSalesControl(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan sales control"})
				return
			}
			controls = append(controls, sc)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating sales controls"})
			return
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Sales Controls"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Folio", "PO Number", "Account", "Assignee", "Status", "Total Amount", "Currency",
			"PO Reception", "Lead Time (days)", "Promise Date", "Overdue", "Delivered", "Invoice #", "Invoice Date", "Payment Date"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		formatDate := func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(quotationDateLayout)
		}

		for rowIdx, sc := range controls {
			values := []interface{}{
				sc.Folio, sc.PONumber, sc.AccountName, sc.AssigneeName, sc.Status, sc.TotalAmount, sc.Currency,
				sc.POReceptionDate.Format(quotationDateLayout), sc.LeadTimeDays, formatDate(sc.PromiseDate),
				sc.Overdue, formatDate(sc.ActualDeliveryDate), sc.InvoiceNumber, formatDate(sc.InvoiceDate),
				formatDate(sc.PaymentDate),
			}
			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		filename := fmt.Sprintf("sales_controls_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
			return
		}
	}
}

// ExportQuotations writes a workbook of quotations
// @Summary Export quotations to Excel
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse
// @Router /api/exports/quotations [get]
func ExportQuotations(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		if _, _, err := GetSessionDetails(db, sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		where := ""
		args := []interface{}{}
		if status := c.Query("status"); status != "" {
			where = "WHERE q.status = $1"
			args = append(args, status)
		}

		rows, err := db.Query(fmt.Sprintf(`
			SELECT q.folio, COALESCE(a.name, ''), q.total_amount, q.currency, q.status,
			       q.valid_from, q.valid_until, q.expired, q.won_date, q.lost_date, COALESCE(q.lost_reason, '')
			FROM quotations q
			LEFT JOIN accounts a ON q.account_id = a.id
			%s
			ORDER BY q.created_at DESC`, where), args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotations"})
			return
		}
		defer rows.Close()

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Quotations"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Folio", "Account", "Total Amount", "Currency", "Status",
			"Valid From", "Valid Until", "Expired", "Won Date", "Lost Date", "Lost Reason"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		formatDate := func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(quotationDateLayout)
		}

		rowIdx := 2
		for rows.Next() {
			var folio, accountName, currency, status, lostReason string
			var totalAmount float64
			var validFrom, validUntil time.Time
			var expired bool
			var wonDate, lostDate *time.Time
			if err := rows.Scan(&folio, &accountName, &totalAmount, &currency, &status,
				&validFrom, &validUntil, &expired, &wonDate, &lostDate, &lostReason); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quotation"})
				return
			}
			values := []interface{}{
				folio, accountName, totalAmount, currency, status,
				validFrom.Format(quotationDateLayout), validUntil.Format(quotationDateLayout),
				expired, formatDate(wonDate), formatDate(lostDate), lostReason,
			}
			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
				f.SetCellValue(sheet, cell, v)
			}
			rowIdx++
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating quotations"})
			return
		}

		filename := fmt.Sprintf("quotations_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
			return
		}
	}
}

// ExportExpenses writes a workbook of expenses for a date range
// @Summary Export expenses to Excel
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Expense date lower bound (YYYY-MM-DD)"
// @Param to query string false "Expense date upper bound (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse
// @Router /api/exports/expenses [get]
func ExportExpenses(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		if _, _, err := GetSessionDetails(db, sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		where := "WHERE 1=1"
		args := []interface{}{}
		if from := c.Query("from"); from != "" {
			args = append(args, from)
			where += fmt.Sprintf(" AND e.expense_date >= $%d", len(args))
		}
		if to := c.Query("to"); to != "" {
			args = append(args, to)
			where += fmt.Sprintf(" AND e.expense_date <= $%d", len(args))
		}

		rows, err := db.Query(fmt.Sprintf(`
			SELECT e.expense_date, e.vendor, e.amount, e.currency, COALESCE(ec.name, ''), e.approved, e.notes
			FROM expenses e
			LEFT JOIN expense_categories ec ON e.category_id = ec.id
			%s
			ORDER BY e.expense_date DESC`, where), args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
			return
		}
		defer rows.Close()

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Expenses"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"Date", "Vendor", "Amount", "Currency", "Category", "Approved", "Notes"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		rowIdx := 2
		for rows.Next() {
			var expenseDate time.Time
			var vendor, currency, category, notes sql.NullString
			var amount float64
			var approved bool
			if err := rows.Scan(&expenseDate, &vendor, &amount, &currency, &category, &approved, &notes); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan expense"})
				return
			}
			values := []interface{}{
				expenseDate.Format(quotationDateLayout), vendor.String, amount, currency.String,
				category.String, approved, notes.String,
			}
			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
				f.SetCellValue(sheet, cell, v)
			}
			rowIdx++
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating expenses"})
			return
		}

		filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("20060102_150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
			return
		}
	}
}
