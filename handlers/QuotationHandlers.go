package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/repository"
	"onquota/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const quotationDateLayout = "2006-01-02"

// Notification action URL templates
const (
	quotationActionTemplate    = "/sales/quotations/%d"
	salesControlActionTemplate = "/sales/controls/%d"
)

var (
	errQuotationNotFound    = errors.New("quotation not found")
	errQuotationNotPending  = errors.New("quotation is not pending")
	errMissingWonDate       = errors.New("won_date is required")
	errMissingFolio         = errors.New("sales_control_folio is required")
	errMissingPONumber      = errors.New("po_number is required")
	errMissingPOReception   = errors.New("po_reception_date is required")
	errNoLines              = errors.New("at least one product line amount is required")
	errNonPositiveLine      = errors.New("all line amounts must be positive")
	errMissingLostReason    = errors.New("lost_reason is required")
	errMissingLostDate      = errors.New("lost_date is required")
	errNegativeLeadTime     = errors.New("lead_time_days cannot be negative")
	errDuplicateProductLine = errors.New("duplicate product line in win payload")
)

// ValidateWinRequest checks the mandatory win payload fields.
func ValidateWinRequest(req *models.WinQuotationRequest) error {
	if req.WonDate == "" {
		return errMissingWonDate
	}
	if req.SalesControlFolio == "" {
		return errMissingFolio
	}
	if req.PONumber == "" {
		return errMissingPONumber
	}
	if req.POReceptionDate == "" {
		return errMissingPOReception
	}
	if req.LeadTimeDays < 0 {
		return errNegativeLeadTime
	}
	if len(req.Lines) == 0 {
		return errNoLines
	}
	seen := make(map[int]bool, len(req.Lines))
	for _, line := range req.Lines {
		if line.LineAmount <= 0 {
			return errNonPositiveLine
		}
		if seen[line.ProductLineID] {
			return errDuplicateProductLine
		}
		seen[line.ProductLineID] = true
	}
	return nil
}

// ValidateLoseRequest checks the mandatory lose payload fields.
func ValidateLoseRequest(req *models.LoseQuotationRequest) error {
	if req.LostDate == "" {
		return errMissingLostDate
	}
	if req.LostReason == "" {
		return errMissingLostReason
	}
	return nil
}

// ComputePromiseDate derives the delivery commitment date from the PO
// reception date plus the lead time in calendar days.
func ComputePromiseDate(poReceptionDate time.Time, leadTimeDays int) time.Time {
	return poReceptionDate.AddDate(0, 0, leadTimeDays)
}

// LineTotals sums win-payload line amounts and reports whether they diverge
// from the quotation total. Comparison uses decimal arithmetic rounded to two
// places so float noise does not trigger spurious mismatch warnings.
func LineTotals(lines []models.WinLine, quotationTotal float64) (lineTotal float64, mismatch bool) {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(decimal.NewFromFloat(line.LineAmount))
	}
	sum = sum.Round(2)
	total := decimal.NewFromFloat(quotationTotal).Round(2)
	f, _ := sum.Float64()
	return f, !sum.Equal(total)
}

// CreateQuotation creates a new quotation in pending status
// @Summary Create quotation
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body models.Quotation true "Quotation creation request"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/sales/quotations [post]
func CreateQuotation(db *sql.DB) gin.HandlerFunc {
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

		var quotation models.Quotation
		if err := c.ShouldBindJSON(&quotation); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if quotation.TotalAmount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "total_amount must be positive"})
			return
		}
		if quotation.Currency == "" {
			quotation.Currency = "USD"
		}
		if quotation.Folio == "" {
			quotation.Folio = repository.GenerateFolio(repository.FolioPrefixQuotation)
		}
		if quotation.ValidUntil.IsZero() {
			if quotation.ValidFrom.IsZero() {
				quotation.ValidFrom = time.Now()
			}
			quotation.ValidUntil = quotation.ValidFrom.AddDate(0, 0, 30)
		}

		var accountExists bool
		err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", quotation.AccountID).Scan(&accountExists)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !accountExists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account does not exist"})
			return
		}

		err = db.QueryRow(`
			INSERT INTO quotations (folio, account_id, total_amount, currency, status, valid_from, valid_until, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
			quotation.Folio, quotation.AccountID, quotation.TotalAmount, quotation.Currency,
			models.QuotationPending, quotation.ValidFrom, quotation.ValidUntil, session.UserID, time.Now(),
		).Scan(&quotation.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Quotation with this folio already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create quotation"})
			return
		}
		quotation.Status = models.QuotationPending
		quotation.CreatedBy = session.UserID

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Quotation created successfully",
			Data:    &quotation,
		})

		logActivity(db, session, userName, "Quotation", "Create",
			fmt.Sprintf("Quotation %s created for account %d", quotation.Folio, quotation.AccountID),
			"quotation", quotation.ID)
	}
}

// GetQuotations lists quotations with pagination
// @Summary List quotations
// @Tags Quotations
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Success 200 {object} models.PaginatedResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/sales/quotations [get]
func GetQuotations(db *sql.DB) gin.HandlerFunc {
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

		page, pageSize := repository.ParsePagination(c)
		offset := (page - 1) * pageSize

		where := ""
		args := []interface{}{}
		if status := c.Query("status"); status != "" {
			where = "WHERE q.status = $1"
			args = append(args, status)
		}

		var total int
		countQuery := "SELECT COUNT(*) FROM quotations q " + where
		if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count quotations", "details": err.Error()})
			return
		}

		query := fmt.Sprintf(`
			SELECT q.id, q.folio, q.account_id, a.name, q.total_amount, q.currency, q.status,
				   q.valid_from, q.valid_until, q.expired, q.won_date, q.lost_date, q.lost_reason,
				   q.sales_control_id, q.created_by, q.created_at, q.updated_at
			FROM quotations q
			LEFT JOIN accounts a ON q.account_id = a.id
			%s
			ORDER BY q.created_at DESC
			LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
		args = append(args, pageSize, offset)

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotations", "details": err.Error()})
			return
		}
		defer rows.Close()

		quotations := []models.Quotation{}
		for rows.Next() {
			q, err := scanQuotation(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quotation", "details": err.Error()})
				return
			}
			quotations = append(quotations, q)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating quotations"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      quotations,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuotation(row rowScanner) (models.Quotation, error) {
	var q models.Quotation
	var accountName sql.NullString
	var wonDate, lostDate sql.NullTime
	var lostReason sql.NullString
	var salesControlID sql.NullInt64

	err := row.Scan(&q.ID, &q.Folio, &q.AccountID, &accountName, &q.TotalAmount, &q.Currency, &q.Status,
		&q.ValidFrom, &q.ValidUntil, &q.Expired, &wonDate, &lostDate, &lostReason,
		&salesControlID, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	q.AccountName = accountName.String
	if wonDate.Valid {
		q.WonDate = &wonDate.Time
	}
	if lostDate.Valid {
		q.LostDate = &lostDate.Time
	}
	q.LostReason = lostReason.String
	if salesControlID.Valid {
		id := int(salesControlID.Int64)
		q.SalesControlID = &id
	}
	return q, nil
}

// GetQuotation retrieves a quotation by ID
// @Summary Get quotation by ID
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/sales/quotations/{id} [get]
func GetQuotation(db *sql.DB) gin.HandlerFunc {
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

		q, err := scanQuotation(row)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotation"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Quotation retrieved successfully",
			Data:    &q,
		})
	}
}

// WinQuotation marks a pending quotation as won and creates the downstream
// sales control with its apportioned product-line amounts in one transaction.
// @Summary Mark quotation won
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param request body models.WinQuotationRequest true "Win payload"
// @Success 200 {object} models.WinQuotationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/quotations/{id}/win [post]
func WinQuotation(db *sql.DB) gin.HandlerFunc {
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

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var req models.WinQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := ValidateWinRequest(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		wonDate, err := time.Parse(quotationDateLayout, req.WonDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid won_date, expected YYYY-MM-DD"})
			return
		}
		poReceptionDate, err := time.Parse(quotationDateLayout, req.POReceptionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid po_reception_date, expected YYYY-MM-DD"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to begin transaction"})
			return
		}
		defer tx.Rollback()

		quotation, control, err := winQuotationTx(ctx, tx, quotationID, session.UserID, wonDate, poReceptionDate, &req)
		if err != nil {
			respondQuotationTransitionError(c, err)
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		lineTotal, mismatch := LineTotals(req.Lines, quotation.TotalAmount)
		message := "Quotation marked won"
		if mismatch {
			message = "Quotation marked won; line amounts do not sum to the quotation total"
		}

		c.JSON(http.StatusOK, models.WinQuotationResponse{
			Success:           true,
			Message:           message,
			Quotation:         quotation,
			SalesControl:      control,
			LineTotalMismatch: mismatch,
			LineTotal:         lineTotal,
			QuotationTotal:    quotation.TotalAmount,
		})

		accountName := getAccountName(db, quotation.AccountID)
		sendUserNotification(db, control.AssigneeID,
			fmt.Sprintf("Quotation %s for %s was won. Sales control %s created.", quotation.Folio, accountName, control.Folio),
			fmt.Sprintf(salesControlActionTemplate, control.ID))
		logActivity(db, session, userName, "Quotation", "Win",
			fmt.Sprintf("Quotation %s won, sales control %s created", quotation.Folio, control.Folio),
			"quotation", quotation.ID)

		notifyAssigneeByEmail(db, control, quotation, accountName)
	}
}

// winQuotationTx runs the win transition inside an open transaction.
func winQuotationTx(ctx context.Context, tx *sql.Tx, quotationID, sessionUserID int, wonDate, poReceptionDate time.Time, req *models.WinQuotationRequest) (*models.Quotation, *models.SalesControl, error) {
	var quotation models.Quotation
	err := tx.QueryRowContext(ctx, `
		SELECT id, folio, account_id, total_amount, currency, status
		FROM quotations WHERE id = $1 FOR UPDATE`, quotationID).
		Scan(&quotation.ID, &quotation.Folio, &quotation.AccountID, &quotation.TotalAmount, &quotation.Currency, &quotation.Status)
	if err == sql.ErrNoRows {
		return nil, nil, errQuotationNotFound
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch quotation: %w", err)
	}
	if quotation.Status != models.QuotationPending {
		return nil, nil, errQuotationNotPending
	}

	// Verify all referenced product lines exist and are active.
	lineIDs := make([]int, 0, len(req.Lines))
	for _, l := range req.Lines {
		lineIDs = append(lineIDs, l.ProductLineID)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM product_lines WHERE active = true AND id = ANY($1)`, pq.Array(lineIDs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify product lines: %w", err)
	}
	available := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan product line id: %w", err)
		}
		available[id] = true
	}
	rows.Close()
	if len(available) != len(lineIDs) {
		var missing []int
		for _, id := range lineIDs {
			if !available[id] {
				missing = append(missing, id)
			}
		}
		return nil, nil, &models.ErrLinesUnavailable{LineIDs: missing}
	}

	assigneeID := req.AssigneeID
	if assigneeID == 0 {
		assigneeID = sessionUserID
	}

	promiseDate := ComputePromiseDate(poReceptionDate, req.LeadTimeDays)
	now := time.Now()

	control := models.SalesControl{
		Folio:           req.SalesControlFolio,
		QuotationID:     quotation.ID,
		PONumber:        req.PONumber,
		POReceptionDate: poReceptionDate,
		LeadTimeDays:    req.LeadTimeDays,
		PromiseDate:     &promiseDate,
		AccountID:       quotation.AccountID,
		AssigneeID:      assigneeID,
		TotalAmount:     quotation.TotalAmount,
		Currency:        quotation.Currency,
		Status:          models.ControlPending,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales_controls (folio, quotation_id, po_number, po_reception_date, lead_time_days, promise_date,
			account_id, assignee_id, total_amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		control.Folio, control.QuotationID, control.PONumber, control.POReceptionDate, control.LeadTimeDays,
		control.PromiseDate, control.AccountID, control.AssigneeID, control.TotalAmount, control.Currency,
		control.Status, now).Scan(&control.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert sales control: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales_control_lines (sales_control_id, product_line_id, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4) RETURNING id`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare line insert statement: %w", err)
	}
	defer stmt.Close()

	for _, line := range req.Lines {
		var lineID int
		if err := stmt.QueryRowContext(ctx, control.ID, line.ProductLineID, line.LineAmount, now).Scan(&lineID); err != nil {
			return nil, nil, fmt.Errorf("failed to insert control line for product line %d: %w", line.ProductLineID, err)
		}
		control.Lines = append(control.Lines, models.SalesControlLine{
			ID:             lineID,
			SalesControlID: control.ID,
			ProductLineID:  line.ProductLineID,
			Amount:         line.LineAmount,
		})
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE quotations SET status = $1, won_date = $2, sales_control_id = $3, updated_at = $4 WHERE id = $5`,
		models.QuotationWon, wonDate, control.ID, now, quotation.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update quotation: %w", err)
	}

	quotation.Status = models.QuotationWon
	quotation.WonDate = &wonDate
	quotation.SalesControlID = &control.ID
	return &quotation, &control, nil
}

// LoseQuotation marks a pending quotation as lost
// @Summary Mark quotation lost
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param request body models.LoseQuotationRequest true "Lose payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/quotations/{id}/lose [post]
func LoseQuotation(db *sql.DB) gin.HandlerFunc {
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

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var req models.LoseQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := ValidateLoseRequest(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		lostDate, err := time.Parse(quotationDateLayout, req.LostDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lost_date, expected YYYY-MM-DD"})
			return
		}

		var folio, status string
		err = db.QueryRow(`SELECT folio, status FROM quotations WHERE id = $1`, quotationID).Scan(&folio, &status)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if status != models.QuotationPending {
			c.JSON(http.StatusConflict, gin.H{"error": "Quotation is not pending"})
			return
		}

		_, err = db.Exec(`
			UPDATE quotations SET status = $1, lost_date = $2, lost_reason = $3, updated_at = $4 WHERE id = $5`,
			models.QuotationLost, lostDate, req.LostReason, time.Now(), quotationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quotation"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Quotation marked lost",
		})

		logActivity(db, session, userName, "Quotation", "Lose",
			fmt.Sprintf("Quotation %s lost: %s", folio, req.LostReason),
			"quotation", quotationID)
	}
}

// DeleteQuotation deletes a pending quotation
// @Summary Delete quotation
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/quotations/{id} [delete]
func DeleteQuotation(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var folio, status string
		err = db.QueryRow(`SELECT folio, status FROM quotations WHERE id = $1`, id).Scan(&folio, &status)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		// Terminal quotations stay on record.
		if status != models.QuotationPending {
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending quotations can be deleted"})
			return
		}

		if _, err := db.Exec(`DELETE FROM quotations WHERE id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete quotation"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Quotation deleted successfully",
		})

		logActivity(db, session, userName, "Quotation", "Delete",
			fmt.Sprintf("Quotation %s deleted", folio), "quotation", id)
	}
}

func respondQuotationTransitionError(c *gin.Context, err error) {
	var linesErr *models.ErrLinesUnavailable
	switch {
	case errors.Is(err, errQuotationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
	case errors.Is(err, errQuotationNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Quotation is not pending"})
	case errors.As(err, &linesErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more product lines are unavailable", "product_line_ids": linesErr.LineIDs})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark quotation won", "details": err.Error()})
	}
}

// notifyAssigneeByEmail sends a best-effort win email to the assignee.
func notifyAssigneeByEmail(db *sql.DB, control *models.SalesControl, quotation *models.Quotation, accountName string) {
	if emailService == nil {
		return
	}
	var email, firstName string
	err := db.QueryRow(`SELECT email, first_name FROM users WHERE id = $1`, control.AssigneeID).Scan(&email, &firstName)
	if err != nil {
		log.Printf("Failed to fetch assignee email: %v", err)
		return
	}
	vars := map[string]string{
		"user_name":           firstName,
		"folio":               quotation.Folio,
		"account_name":        accountName,
		"sales_control_folio": control.Folio,
		"po_number":           control.PONumber,
		"action_url":          fmt.Sprintf(salesControlActionTemplate, control.ID),
	}
	if err := emailService.SendQuotationWonEmail(email, vars); err != nil {
		log.Printf("Failed to send win email: %v", err)
	}
}
