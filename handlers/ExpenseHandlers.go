package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/repository"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateExpense records a manually entered expense
// @Summary Create expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body models.Expense true "Expense"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/expenses [post]
func CreateExpense(db *sql.DB) gin.HandlerFunc {
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

		var expense models.Expense
		if err := c.ShouldBindJSON(&expense); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if expense.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		if expense.Currency == "" {
			expense.Currency = "USD"
		}
		if expense.ExpenseDate.IsZero() {
			expense.ExpenseDate = time.Now()
		}

		var categoryID interface{}
		if expense.CategoryID != 0 {
			var exists bool
			if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM expense_categories WHERE id = $1)", expense.CategoryID).Scan(&exists); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
			if !exists {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Expense category does not exist"})
				return
			}
			categoryID = expense.CategoryID
		}

		err = db.QueryRow(`
			INSERT INTO expenses (amount, currency, expense_date, category_id, vendor, receipt_file, notes, approved, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9, $9) RETURNING id`,
			expense.Amount, expense.Currency, expense.ExpenseDate, categoryID, expense.Vendor,
			expense.ReceiptFile, expense.Notes, session.UserID, time.Now()).Scan(&expense.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense", "details": err.Error()})
			return
		}
		expense.CreatedBy = session.UserID
		expense.Approved = false

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Expense created successfully",
			Data:    &expense,
		})

		logActivity(db, session, userName, "Expense", "Create",
			fmt.Sprintf("Expense of %.2f %s at %s recorded", expense.Amount, expense.Currency, expense.Vendor),
			"expense", expense.ID)
	}
}

// GetExpenses lists expenses with pagination and optional filters
// @Summary List expenses
// @Tags Expenses
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param category_id query int false "Filter by category"
// @Param approved query bool false "Filter by approval state"
// @Param from query string false "Expense date lower bound (YYYY-MM-DD)"
// @Param to query string false "Expense date upper bound (YYYY-MM-DD)"
// @Success 200 {object} models.PaginatedResponse
// @Router /api/expenses [get]
func GetExpenses(db *sql.DB) gin.HandlerFunc {
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
		if categoryID := c.Query("category_id"); categoryID != "" {
			args = append(args, categoryID)
			where += fmt.Sprintf(" AND e.category_id = $%d", len(args))
		}
		if approved := c.Query("approved"); approved != "" {
			args = append(args, approved == "true")
			where += fmt.Sprintf(" AND e.approved = $%d", len(args))
		}
		if from := c.Query("from"); from != "" {
			args = append(args, from)
			where += fmt.Sprintf(" AND e.expense_date >= $%d", len(args))
		}
		if to := c.Query("to"); to != "" {
			args = append(args, to)
			where += fmt.Sprintf(" AND e.expense_date <= $%d", len(args))
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM expenses e "+where, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count expenses"})
			return
		}

		query := fmt.Sprintf(`
			SELECT e.id, e.amount, e.currency, e.expense_date, e.category_id, COALESCE(ec.name, ''),
				   e.vendor, e.receipt_file, e.notes, e.approved, e.ocr_job_id, e.created_by, e.created_at, e.updated_at
			FROM expenses e
			LEFT JOIN expense_categories ec ON e.category_id = ec.id
			%s
			ORDER BY e.expense_date DESC, e.id DESC
			LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
		args = append(args, pageSize, offset)

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses", "details": err.Error()})
			return
		}
		defer rows.Close()

		expenses := []models.Expense{}
		for rows.Next() {
			var e models.Expense
			var categoryID, ocrJobID sql.NullInt64
			var vendor, receiptFile, notes sql.NullString
			err := rows.Scan(&e.ID, &e.Amount, &e.Currency, &e.ExpenseDate, &categoryID, &e.CategoryName,
				&vendor, &receiptFile, &notes, &e.Approved, &ocrJobID, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan expense"})
				return
			}
			if categoryID.Valid {
				e.CategoryID = int(categoryID.Int64)
			}
			if ocrJobID.Valid {
				id := int(ocrJobID.Int64)
				e.OCRJobID = &id
			}
			e.Vendor = vendor.String
			e.ReceiptFile = receiptFile.String
			e.Notes = notes.String
			expenses = append(expenses, e)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating expenses"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      expenses,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

// ApproveExpense marks an expense as approved
// @Summary Approve expense
// @Tags Expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/expenses/{id}/approve [post]
func ApproveExpense(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
			return
		}

		result, err := db.Exec(`UPDATE expenses SET approved = true, updated_at = $1 WHERE id = $2`, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve expense"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Expense approved",
		})

		logActivity(db, session, userName, "Expense", "Approve",
			fmt.Sprintf("Expense %d approved", id), "expense", id)
	}
}

// DeleteExpense removes an unapproved expense
// @Summary Delete expense
// @Tags Expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/expenses/{id} [delete]
func DeleteExpense(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense ID"})
			return
		}

		var approved bool
		err = db.QueryRow(`SELECT approved FROM expenses WHERE id = $1`, id).Scan(&approved)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if approved {
			c.JSON(http.StatusConflict, gin.H{"error": "Approved expenses cannot be deleted"})
			return
		}

		if _, err := db.Exec(`DELETE FROM expenses WHERE id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Expense deleted successfully",
		})

		logActivity(db, session, userName, "Expense", "Delete",
			fmt.Sprintf("Expense %d deleted", id), "expense", id)
	}
}

// CreateExpenseCategory adds an expense category
// @Summary Create expense category
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body models.ExpenseCategory true "Category"
// @Success 201 {object} models.SuccessResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/expense-categories [post]
func CreateExpenseCategory(db *sql.DB) gin.HandlerFunc {
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

		var category models.ExpenseCategory
		if err := c.ShouldBindJSON(&category); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := db.QueryRow(`
			INSERT INTO expense_categories (name, created_at, updated_at)
			VALUES ($1, $2, $2) RETURNING id`, category.Name, time.Now()).Scan(&category.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Category with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Category created successfully",
			Data:    &category,
		})
	}
}

// GetExpenseCategories lists all expense categories
// @Summary List expense categories
// @Tags Expenses
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/expense-categories [get]
func GetExpenseCategories(db *sql.DB) gin.HandlerFunc {
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

		rows, err := db.Query(`SELECT id, name, created_at, updated_at FROM expense_categories ORDER BY name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		defer rows.Close()

		categories := []models.ExpenseCategory{}
		for rows.Next() {
			var cat models.ExpenseCategory
			if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan category"})
				return
			}
			categories = append(categories, cat)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating categories"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Categories retrieved successfully",
			Data:    categories,
		})
	}
}
