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

// CreateAccount adds a client account
// @Summary Create account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body models.Account true "Account"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/accounts [post]
func CreateAccount(db *sql.DB) gin.HandlerFunc {
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

		var account models.Account
		if err := c.ShouldBindJSON(&account); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if account.OwnerID == 0 {
			account.OwnerID = session.UserID
		}

		err = db.QueryRow(`
			INSERT INTO accounts (name, industry, contact_name, contact_email, contact_phone, owner_id, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
			account.Name, account.Industry, account.ContactName, account.ContactEmail,
			account.ContactPhone, account.OwnerID, account.Notes, time.Now()).Scan(&account.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Account with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Account created successfully",
			Data:    &account,
		})

		logActivity(db, session, userName, "Account", "Create",
			fmt.Sprintf("Account %s created", account.Name), "account", account.ID)
	}
}

// GetAccounts lists accounts with pagination and search
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param search query string false "Search by name"
// @Success 200 {object} models.PaginatedResponse
// @Router /api/accounts [get]
func GetAccounts(db *sql.DB) gin.HandlerFunc {
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
		if search := c.Query("search"); search != "" {
			where = "WHERE a.name ILIKE $1"
			args = append(args, "%"+search+"%")
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM accounts a "+where, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count accounts"})
			return
		}

		query := fmt.Sprintf(`
			SELECT a.id, a.name, a.industry, a.contact_name, a.contact_email, a.contact_phone,
				   a.owner_id, COALESCE(u.first_name || ' ' || u.last_name, ''), a.notes, a.created_at, a.updated_at
			FROM accounts a
			LEFT JOIN users u ON a.owner_id = u.id
			%s
			ORDER BY a.name
			LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
		args = append(args, pageSize, offset)

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch accounts"})
			return
		}
		defer rows.Close()

		accounts := []models.Account{}
		for rows.Next() {
			var a models.Account
			var industry, contactName, contactEmail, contactPhone, notes sql.NullString
			err := rows.Scan(&a.ID, &a.Name, &industry, &contactName, &contactEmail, &contactPhone,
				&a.OwnerID, &a.OwnerName, &notes, &a.CreatedAt, &a.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan account"})
				return
			}
			a.Industry = industry.String
			a.ContactName = contactName.String
			a.ContactEmail = contactEmail.String
			a.ContactPhone = contactPhone.String
			a.Notes = notes.String
			accounts = append(accounts, a)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating accounts"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      accounts,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

// GetAccount retrieves an account with recent quotations
// @Summary Get account by ID
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/accounts/{id} [get]
func GetAccount(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
			return
		}

		var a models.Account
		var industry, contactName, contactEmail, contactPhone, notes sql.NullString
		err = db.QueryRow(`
			SELECT a.id, a.name, a.industry, a.contact_name, a.contact_email, a.contact_phone,
				   a.owner_id, COALESCE(u.first_name || ' ' || u.last_name, ''), a.notes, a.created_at, a.updated_at
			FROM accounts a
			LEFT JOIN users u ON a.owner_id = u.id
			WHERE a.id = $1`, id).
			Scan(&a.ID, &a.Name, &industry, &contactName, &contactEmail, &contactPhone,
				&a.OwnerID, &a.OwnerName, &notes, &a.CreatedAt, &a.UpdatedAt)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch account"})
			return
		}
		a.Industry = industry.String
		a.ContactName = contactName.String
		a.ContactEmail = contactEmail.String
		a.ContactPhone = contactPhone.String
		a.Notes = notes.String

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Account retrieved successfully",
			Data:    &a,
		})
	}
}

// UpdateAccount edits an account
// @Summary Update account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body models.Account true "Account"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/accounts/{id} [put]
func UpdateAccount(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
			return
		}

		var account models.Account
		if err := c.ShouldBindJSON(&account); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE accounts
			SET name = $1, industry = $2, contact_name = $3, contact_email = $4, contact_phone = $5, owner_id = $6, notes = $7, updated_at = $8
			WHERE id = $9`,
			account.Name, account.Industry, account.ContactName, account.ContactEmail,
			account.ContactPhone, account.OwnerID, account.Notes, time.Now(), id)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Account with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update account"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		account.ID = id

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Account updated successfully",
			Data:    &account,
		})

		logActivity(db, session, userName, "Account", "Update",
			fmt.Sprintf("Account %s updated", account.Name), "account", id)
	}
}

// DeleteAccount removes an account with no quotations or opportunities
// @Summary Delete account
// @Tags Accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/accounts/{id} [delete]
func DeleteAccount(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
			return
		}

		var referenced bool
		err = db.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM quotations WHERE account_id = $1)
				OR EXISTS(SELECT 1 FROM opportunities WHERE account_id = $1)`, id).Scan(&referenced)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if referenced {
			c.JSON(http.StatusConflict, gin.H{"error": "Account has quotations or opportunities and cannot be deleted"})
			return
		}

		result, err := db.Exec(`DELETE FROM accounts WHERE id = $1`, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Account deleted successfully",
		})

		logActivity(db, session, userName, "Account", "Delete",
			fmt.Sprintf("Account %d deleted", id), "account", id)
	}
}
