package handlers

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQuotationPDF renders a quotation as a PDF with a QR code linking
// back to the record
// @Summary Quotation PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path int true "Quotation ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /api/sales/quotations/{id}/pdf [get]
func GenerateQuotationPDF(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		row := db.QueryRow(`
			SELECT q.id, q.folio, q.account_id, a.name, q.total_amount, q.currency, q.status,
				   q.valid_from, q.valid_until, q.expired, q.won_date, q.lost_date, q.lost_reason,
				   q.sales_control_id, q.created_by, q.created_at, q.updated_at
			FROM quotations q
			LEFT JOIN accounts a ON q.account_id = a.id
			WHERE q.id = $1`, id)
		quotation, err := scanQuotation(row)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotation"})
			return
		}

		var contactName, contactEmail sql.NullString
		_ = db.QueryRow(`SELECT contact_name, contact_email FROM accounts WHERE id = $1`, quotation.AccountID).
			Scan(&contactName, &contactEmail)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)

		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "QUOTATION")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(95, 8, quotation.Folio)
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(95, 8, fmt.Sprintf("Date: %s", quotation.CreatedAt.Format("02-Jan-2006")), "", 1, "R", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(190, 8, "Prepared for")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(120, 6, fmt.Sprintf("%s\n%s\n%s", quotation.AccountName, contactName.String, contactEmail.String), "", "", false)
		pdf.Ln(4)

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(95, 8, "Field", "1", 0, "L", true, 0, "")
		pdf.CellFormat(95, 8, "Value", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		rows := [][2]string{
			{"Status", quotation.Status},
			{"Total Amount", fmt.Sprintf("%.2f %s", quotation.TotalAmount, quotation.Currency)},
			{"Valid From", quotation.ValidFrom.Format("02-Jan-2006")},
			{"Valid Until", quotation.ValidUntil.Format("02-Jan-2006")},
		}
		if quotation.Expired {
			rows = append(rows, [2]string{"Expired", "yes"})
		}
		if quotation.WonDate != nil {
			rows = append(rows, [2]string{"Won Date", quotation.WonDate.Format("02-Jan-2006")})
		}
		if quotation.LostDate != nil {
			rows = append(rows, [2]string{"Lost Date", quotation.LostDate.Format("02-Jan-2006")})
			rows = append(rows, [2]string{"Lost Reason", quotation.LostReason})
		}
		for _, r := range rows {
			pdf.CellFormat(95, 8, r[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 8, r[1], "1", 1, "L", false, 0, "")
		}
		pdf.Ln(8)

		// QR code linking back to the quotation in the web app.
		baseURL := os.Getenv("APP_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:3000"
		}
		qrPayload := fmt.Sprintf("%s/sales/quotations/%d", baseURL, quotation.ID)
		qrBytes, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
		if err == nil {
			pdf.RegisterImageOptionsReader("quotation_qr", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrBytes))
			pdf.ImageOptions("quotation_qr", 10, pdf.GetY(), 30, 30, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
			pdf.SetXY(45, pdf.GetY()+12)
			pdf.SetFont("Arial", "I", 9)
			pdf.Cell(140, 6, "Scan to open this quotation")
		}

		filename := fmt.Sprintf("%s_%s.pdf", sanitizeFilename(quotation.Folio), time.Now().Format("20060102"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/pdf")
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write PDF"})
			return
		}
	}
}

// sanitizeFilename strips path separators from folio-derived filenames.
func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
