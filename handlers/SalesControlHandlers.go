package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/repository"
	"onquota/utils"

	"github.com/gin-gonic/gin"
)

// controlTransitions lists every legal sales-control status change.
var controlTransitions = map[string]map[string]bool{
	models.ControlPending: {
		models.ControlInProduction: true,
		models.ControlCancelled:    true,
	},
	models.ControlInProduction: {
		models.ControlDelivered: true,
		models.ControlCancelled: true,
	},
	models.ControlDelivered: {
		models.ControlInvoiced:  true,
		models.ControlCancelled: true,
	},
	models.ControlInvoiced: {
		models.ControlPaid:      true,
		models.ControlCancelled: true,
	},
	models.ControlPaid:      {},
	models.ControlCancelled: {},
}

// controlOrdinals orders the forward pipeline for progress displays.
// Cancelled sits outside the sequence.
var controlOrdinals = map[string]int{
	models.ControlPending:      0,
	models.ControlInProduction: 1,
	models.ControlDelivered:    2,
	models.ControlInvoiced:     3,
	models.ControlPaid:         4,
	models.ControlCancelled:    -1,
}

// CanTransitionControl reports whether a sales control may move between two statuses.
func CanTransitionControl(from, to string) bool {
	allowed, ok := controlTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// ControlOrdinal returns the pipeline position of a status, -1 for cancelled
// or unknown statuses.
func ControlOrdinal(status string) int {
	ordinal, ok := controlOrdinals[status]
	if !ok {
		return -1
	}
	return ordinal
}

// IsControlOverdue reports whether a control has passed its promise date
// without reaching the delivered stage.
func IsControlOverdue(status string, promiseDate *time.Time, now time.Time) bool {
	if promiseDate == nil {
		return false
	}
	if status != models.ControlPending && status != models.ControlInProduction {
		return false
	}
	return now.After(*promiseDate)
}

const selectSalesControlBase = `
	SELECT sc.id, sc.folio, sc.quotation_id, sc.po_number, sc.po_reception_date, sc.lead_time_days,
		   sc.promise_date, sc.account_id, a.name, sc.assignee_id,
		   COALESCE(u.first_name || ' ' || u.last_name, ''), sc.total_amount, sc.currency, sc.status,
		   sc.actual_delivery_date, sc.invoice_number, sc.invoice_date, sc.payment_date,
		   sc.cancel_reason, sc.vehicle_id, sc.driver_name, sc.created_at, sc.updated_at
	FROM sales_controls sc
	LEFT JOIN accounts a ON sc.account_id = a.id
	LEFT JOIN users u ON sc.assignee_id = u.id`

func scanSalesControl(row rowScanner) (models.SalesControl, error) {
	var sc models.SalesControl
	var accountName, assigneeName, invoiceNumber, cancelReason, driverName sql.NullString
	var promiseDate, actualDeliveryDate, invoiceDate, paymentDate sql.NullTime
	var vehicleID sql.NullInt64

	err := row.Scan(&sc.ID, &sc.Folio, &sc.QuotationID, &sc.PONumber, &sc.POReceptionDate, &sc.LeadTimeDays,
		&promiseDate, &sc.AccountID, &accountName, &sc.AssigneeID,
		&assigneeName, &sc.TotalAmount, &sc.Currency, &sc.Status,
		&actualDeliveryDate, &invoiceNumber, &invoiceDate, &paymentDate,
		&cancelReason, &vehicleID, &driverName, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return sc, err
	}
	sc.AccountName = accountName.String
	sc.AssigneeName = assigneeName.String
	sc.InvoiceNumber = invoiceNumber.String
	sc.CancelReason = cancelReason.String
	sc.DriverName = driverName.String
	if promiseDate.Valid {
		sc.PromiseDate = &promiseDate.Time
	}
	if actualDeliveryDate.Valid {
		sc.ActualDeliveryDate = &actualDeliveryDate.Time
	}
	if invoiceDate.Valid {
		sc.InvoiceDate = &invoiceDate.Time
	}
	if paymentDate.Valid {
		sc.PaymentDate = &paymentDate.Time
	}
	if vehicleID.Valid {
		id := int(vehicleID.Int64)
		sc.VehicleID = &id
	}
	sc.StatusOrdinal = ControlOrdinal(sc.Status)
	sc.Overdue = IsControlOverdue(sc.Status, sc.PromiseDate, time.Now())
	return sc, nil
}

func loadControlLines(db *sql.DB, sc *models.SalesControl) error {
	rows, err := db.Query(`
		SELECT l.id, l.sales_control_id, l.product_line_id, COALESCE(p.name, ''), l.amount
		FROM sales_control_lines l
		LEFT JOIN product_lines p ON l.product_line_id = p.id
		WHERE l.sales_control_id = $1
		ORDER BY l.id`, sc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line models.SalesControlLine
		if err := rows.Scan(&line.ID, &line.SalesControlID, &line.ProductLineID, &line.ProductLineName, &line.Amount); err != nil {
			return err
		}
		if sc.TotalAmount > 0 {
			line.PercentOfTotal = float64(int(line.Amount/sc.TotalAmount*10000+0.5)) / 100
		}
		sc.Lines = append(sc.Lines, line)
	}
	return rows.Err()
}

// GetSalesControls lists sales controls with pagination
// @Summary List sales controls
// @Tags SalesControls
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param status query string false "Filter by status"
// @Param overdue query bool false "Only overdue controls"
// @Success 200 {object} models.PaginatedResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/sales/controls [get]
func GetSalesControls(db *sql.DB) gin.HandlerFunc {
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

		where := "WHERE 1=1"
		args := []interface{}{}
		if status := c.Query("status"); status != "" {
			args = append(args, status)
			where += fmt.Sprintf(" AND sc.status = $%d", len(args))
		}
		if c.Query("overdue") == "true" {
			where += " AND sc.promise_date < NOW() AND sc.status IN ('pending', 'in_production')"
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM sales_controls sc "+where, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count sales controls", "details": err.Error()})
			return
		}

		query := fmt.Sprintf("%s %s ORDER BY sc.created_at DESC LIMIT $%d OFFSET $%d",
			selectSalesControlBase, where, len(args)+1, len(args)+2)
		args = append(args, pageSize, offset)

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales controls", "details": err.Error()})
			return
		}
		defer rows.Close()

		controls := []models.SalesControl{}
		for rows.Next() {
			sc, err := scanSalesControl(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan sales control", "details": err.Error()})
				return
			}
			controls = append(controls, sc)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating sales controls"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      controls,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

// GetSalesControl retrieves a sales control with its lines
// @Summary Get sales control by ID
// @Tags SalesControls
// @Produce json
// @Param id path int true "Sales control ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/sales/controls/{id} [get]
func GetSalesControl(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sales control ID"})
			return
		}

		row := db.QueryRow(selectSalesControlBase+" WHERE sc.id = $1", id)
		sc, err := scanSalesControl(row)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sales control not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales control", "details": err.Error()})
			return
		}

		if err := loadControlLines(db, &sc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch control lines", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Sales control retrieved successfully",
			Data:    &sc,
		})
	}
}

// fetchControlForTransition locks the control row and validates the requested move.
func fetchControlForTransition(tx *sql.Tx, id int, target string) (folio, current string, assigneeID int, err error) {
	err = tx.QueryRow(`SELECT folio, status, assignee_id FROM sales_controls WHERE id = $1 FOR UPDATE`, id).
		Scan(&folio, &current, &assigneeID)
	if err != nil {
		return "", "", 0, err
	}
	if !CanTransitionControl(current, target) {
		return folio, current, assigneeID, fmt.Errorf("cannot move sales control from %s to %s", current, target)
	}
	return folio, current, assigneeID, nil
}

// StartProduction moves a pending sales control into production
// @Summary Start production
// @Tags SalesControls
// @Produce json
// @Param id path int true "Sales control ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/start-production [post]
func StartProduction(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		transitionControl(c, db, models.ControlInProduction, "Start Production", "Production started",
			func(tx *sql.Tx, id int, now time.Time) error {
				_, err := tx.Exec(`UPDATE sales_controls SET status = $1, updated_at = $2 WHERE id = $3`,
					models.ControlInProduction, now, id)
				return err
			})
	}
}

// MarkDelivered records delivery of a sales control
// @Summary Mark delivered
// @Tags SalesControls
// @Accept json
// @Produce json
// @Param id path int true "Sales control ID"
// @Param request body models.MarkDeliveredRequest true "Delivery payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/mark-delivered [post]
func MarkDelivered(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MarkDeliveredRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ActualDeliveryDate == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "actual_delivery_date is required"})
			return
		}
		deliveryDate, err := time.Parse(quotationDateLayout, req.ActualDeliveryDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actual_delivery_date, expected YYYY-MM-DD"})
			return
		}

		if req.VehicleID != 0 {
			var exists bool
			if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)", req.VehicleID).Scan(&exists); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
			if !exists {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle does not exist"})
				return
			}
		}

		transitionControl(c, db, models.ControlDelivered, "Mark Delivered", "Sales control marked delivered",
			func(tx *sql.Tx, id int, now time.Time) error {
				var vehicleID interface{}
				if req.VehicleID != 0 {
					vehicleID = req.VehicleID
				}
				_, err := tx.Exec(`
					UPDATE sales_controls
					SET status = $1, actual_delivery_date = $2, vehicle_id = $3, driver_name = $4, updated_at = $5
					WHERE id = $6`,
					models.ControlDelivered, deliveryDate, vehicleID, req.DriverName, now, id)
				return err
			})
	}
}

// MarkInvoiced records invoicing of a delivered sales control
// @Summary Mark invoiced
// @Tags SalesControls
// @Accept json
// @Produce json
// @Param id path int true "Sales control ID"
// @Param request body models.MarkInvoicedRequest true "Invoice payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/mark-invoiced [post]
func MarkInvoiced(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MarkInvoicedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.InvoiceNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_number is required"})
			return
		}
		if req.InvoiceDate == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_date is required"})
			return
		}
		invoiceDate, err := time.Parse(quotationDateLayout, req.InvoiceDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice_date, expected YYYY-MM-DD"})
			return
		}

		transitionControl(c, db, models.ControlInvoiced, "Mark Invoiced", "Sales control marked invoiced",
			func(tx *sql.Tx, id int, now time.Time) error {
				_, err := tx.Exec(`
					UPDATE sales_controls SET status = $1, invoice_number = $2, invoice_date = $3, updated_at = $4
					WHERE id = $5`,
					models.ControlInvoiced, req.InvoiceNumber, invoiceDate, now, id)
				return err
			})
	}
}

// MarkPaid records payment of an invoiced sales control and rolls the amounts
// into the assignee's quota achievements for the payment month.
// @Summary Mark paid
// @Tags SalesControls
// @Accept json
// @Produce json
// @Param id path int true "Sales control ID"
// @Param request body models.MarkPaidRequest true "Payment payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/mark-paid [post]
func MarkPaid(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MarkPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.PaymentDate == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_date is required"})
			return
		}
		paymentDate, err := time.Parse(quotationDateLayout, req.PaymentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment_date, expected YYYY-MM-DD"})
			return
		}
		period := paymentDate.Format("2006-01")

		transitionControl(c, db, models.ControlPaid, "Mark Paid", "Sales control marked paid",
			func(tx *sql.Tx, id int, now time.Time) error {
				_, err := tx.Exec(`
					UPDATE sales_controls SET status = $1, payment_date = $2, updated_at = $3 WHERE id = $4`,
					models.ControlPaid, paymentDate, now, id)
				if err != nil {
					return err
				}
				return upsertQuotaAchievements(tx, id, period, now)
			})
	}
}

// upsertQuotaAchievements credits each control line's amount to the assignee's
// quota achievement row for the given YYYY-MM period.
func upsertQuotaAchievements(tx *sql.Tx, controlID int, period string, now time.Time) error {
	rows, err := tx.Query(`
		SELECT sc.assignee_id, l.product_line_id, l.amount
		FROM sales_control_lines l
		JOIN sales_controls sc ON l.sales_control_id = sc.id
		WHERE l.sales_control_id = $1`, controlID)
	if err != nil {
		return fmt.Errorf("failed to fetch control lines: %w", err)
	}

	type lineCredit struct {
		assigneeID    int
		productLineID int
		amount        float64
	}
	var credits []lineCredit
	for rows.Next() {
		var credit lineCredit
		if err := rows.Scan(&credit.assigneeID, &credit.productLineID, &credit.amount); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan control line: %w", err)
		}
		credits = append(credits, credit)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, credit := range credits {
		_, err := tx.Exec(`
			INSERT INTO quota_achievements (user_id, product_line_id, period, achieved_amount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (user_id, product_line_id, period)
			DO UPDATE SET achieved_amount = quota_achievements.achieved_amount + EXCLUDED.achieved_amount, updated_at = EXCLUDED.updated_at`,
			credit.assigneeID, credit.productLineID, period, credit.amount, now)
		if err != nil {
			return fmt.Errorf("failed to upsert quota achievement: %w", err)
		}
	}
	return nil
}

// CancelSalesControl cancels a sales control from any non-paid state
// @Summary Cancel sales control
// @Tags SalesControls
// @Accept json
// @Produce json
// @Param id path int true "Sales control ID"
// @Param request body models.CancelControlRequest true "Cancel payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/cancel [post]
func CancelSalesControl(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CancelControlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Reason == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
			return
		}

		transitionControl(c, db, models.ControlCancelled, "Cancel", "Sales control cancelled",
			func(tx *sql.Tx, id int, now time.Time) error {
				_, err := tx.Exec(`
					UPDATE sales_controls SET status = $1, cancel_reason = $2, updated_at = $3 WHERE id = $4`,
					models.ControlCancelled, req.Reason, now, id)
				return err
			})
	}
}

// transitionControl is the shared skeleton for every status transition:
// session check, row lock, transition-table validation, caller-specific
// update, then notification and activity logging after commit.
func transitionControl(c *gin.Context, db *sql.DB, target, eventName, successMessage string, mutate func(tx *sql.Tx, id int, now time.Time) error) {
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sales control ID"})
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

	folio, current, assigneeID, err := fetchControlForTransition(tx, id, target)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sales control not found"})
		return
	} else if err != nil {
		if current != "" {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "current_status": current})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
		return
	}

	now := time.Now()
	if err := mutate(tx, id, now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update sales control", "details": err.Error()})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: successMessage,
	})

	sendUserNotification(db, assigneeID,
		fmt.Sprintf("Sales control %s moved from %s to %s", folio, current, target),
		fmt.Sprintf(salesControlActionTemplate, id))
	logActivity(db, session, userName, "Sales Control", eventName,
		fmt.Sprintf("Sales control %s: %s -> %s", folio, current, target),
		"sales_control", id)
}

// UpdateLeadTime changes the lead time and recomputes the promise date.
// Only controls that have not yet been delivered can be rescheduled.
// @Summary Update lead time
// @Tags SalesControls
// @Accept json
// @Produce json
// @Param id path int true "Sales control ID"
// @Param request body models.UpdateLeadTimeRequest true "Lead time payload"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/sales/controls/{id}/lead-time [patch]
func UpdateLeadTime(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sales control ID"})
			return
		}

		var req models.UpdateLeadTimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.LeadTimeDays < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lead_time_days cannot be negative"})
			return
		}

		var folio, status string
		var poReceptionDate time.Time
		err = db.QueryRow(`SELECT folio, status, po_reception_date FROM sales_controls WHERE id = $1`, id).
			Scan(&folio, &status, &poReceptionDate)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sales control not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if status != models.ControlPending && status != models.ControlInProduction {
			c.JSON(http.StatusConflict, gin.H{"error": "Lead time can only change before delivery", "current_status": status})
			return
		}

		promiseDate := ComputePromiseDate(poReceptionDate, req.LeadTimeDays)
		_, err = db.Exec(`
			UPDATE sales_controls SET lead_time_days = $1, promise_date = $2, updated_at = $3 WHERE id = $4`,
			req.LeadTimeDays, promiseDate, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update lead time"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Lead time updated",
			Data: gin.H{
				"lead_time_days": req.LeadTimeDays,
				"promise_date":   promiseDate.Format(quotationDateLayout),
			},
		})

		logActivity(db, session, userName, "Sales Control", "Update Lead Time",
			fmt.Sprintf("Sales control %s lead time set to %d days", folio, req.LeadTimeDays),
			"sales_control", id)
	}
}
