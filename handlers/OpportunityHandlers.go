package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/repository"

	"github.com/gin-gonic/gin"
)

// stageTransitions lists every legal pipeline stage change. Backward moves
// within the open stages are allowed; closed stages are terminal.
var stageTransitions = map[string]map[string]bool{
	models.StageProspecting: {
		models.StageQualification: true,
		models.StageClosedLost:    true,
	},
	models.StageQualification: {
		models.StageProspecting: true,
		models.StageProposal:    true,
		models.StageClosedLost:  true,
	},
	models.StageProposal: {
		models.StageQualification: true,
		models.StageNegotiation:   true,
		models.StageClosedLost:    true,
	},
	models.StageNegotiation: {
		models.StageProposal:   true,
		models.StageClosedWon:  true,
		models.StageClosedLost: true,
	},
	models.StageClosedWon:  {},
	models.StageClosedLost: {},
}

// CanTransitionStage reports whether an opportunity may move between stages.
func CanTransitionStage(from, to string) bool {
	allowed, ok := stageTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

type updateStageRequest struct {
	Stage string `json:"stage" binding:"required" example:"qualification"`
}

// CreateOpportunity adds a pipeline opportunity
// @Summary Create opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body models.Opportunity true "Opportunity"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/opportunities [post]
func CreateOpportunity(db *sql.DB) gin.HandlerFunc {
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

		var opp models.Opportunity
		if err := c.ShouldBindJSON(&opp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if opp.Stage == "" {
			opp.Stage = models.StageProspecting
		}
		if _, known := stageTransitions[opp.Stage]; !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown pipeline stage"})
			return
		}
		if opp.Currency == "" {
			opp.Currency = "USD"
		}
		if opp.OwnerID == 0 {
			opp.OwnerID = session.UserID
		}

		var accountExists bool
		if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", opp.AccountID).Scan(&accountExists); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !accountExists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Account does not exist"})
			return
		}

		err = db.QueryRow(`
			INSERT INTO opportunities (account_id, name, amount, currency, stage, expected_close_date, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
			opp.AccountID, opp.Name, opp.Amount, opp.Currency, opp.Stage,
			opp.ExpectedCloseDate, opp.OwnerID, time.Now()).Scan(&opp.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create opportunity"})
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Opportunity created successfully",
			Data:    &opp,
		})

		logActivity(db, session, userName, "Opportunity", "Create",
			fmt.Sprintf("Opportunity %s created in stage %s", opp.Name, opp.Stage),
			"opportunity", opp.ID)
	}
}

// GetOpportunities lists opportunities with pagination
// @Summary List opportunities
// @Tags Opportunities
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param stage query string false "Filter by stage"
// @Param account_id query int false "Filter by account"
// @Success 200 {object} models.PaginatedResponse
// @Router /api/opportunities [get]
func GetOpportunities(db *sql.DB) gin.HandlerFunc {
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
		if stage := c.Query("stage"); stage != "" {
			args = append(args, stage)
			where += fmt.Sprintf(" AND o.stage = $%d", len(args))
		}
		if accountID := c.Query("account_id"); accountID != "" {
			args = append(args, accountID)
			where += fmt.Sprintf(" AND o.account_id = $%d", len(args))
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM opportunities o "+where, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count opportunities"})
			return
		}

		query := fmt.Sprintf(`
			SELECT o.id, o.account_id, COALESCE(a.name, ''), o.name, o.amount, o.currency, o.stage,
				   o.expected_close_date, o.owner_id, COALESCE(u.first_name || ' ' || u.last_name, ''),
				   o.created_at, o.updated_at
			FROM opportunities o
			LEFT JOIN accounts a ON o.account_id = a.id
			LEFT JOIN users u ON o.owner_id = u.id
			%s
			ORDER BY o.created_at DESC
			LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
		args = append(args, pageSize, offset)

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch opportunities"})
			return
		}
		defer rows.Close()

		opportunities := []models.Opportunity{}
		for rows.Next() {
			var o models.Opportunity
			var expectedClose sql.NullTime
			err := rows.Scan(&o.ID, &o.AccountID, &o.AccountName, &o.Name, &o.Amount, &o.Currency, &o.Stage,
				&expectedClose, &o.OwnerID, &o.OwnerName, &o.CreatedAt, &o.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan opportunity"})
				return
			}
			if expectedClose.Valid {
				o.ExpectedCloseDate = &expectedClose.Time
			}
			opportunities = append(opportunities, o)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating opportunities"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      opportunities,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

// UpdateOpportunityStage moves an opportunity through the pipeline
// @Summary Update opportunity stage
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body updateStageRequest true "Stage"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/opportunities/{id}/stage [patch]
func UpdateOpportunityStage(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid opportunity ID"})
			return
		}

		var req updateStageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var (
			name, current, currency string
			accountID               int
			amount                  float64
		)
		err = db.QueryRow(`SELECT name, stage, account_id, amount, currency FROM opportunities WHERE id = $1`, id).
			Scan(&name, &current, &accountID, &amount, &currency)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Opportunity not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !CanTransitionStage(current, req.Stage) {
			c.JSON(http.StatusConflict, gin.H{
				"error":         fmt.Sprintf("cannot move opportunity from %s to %s", current, req.Stage),
				"current_stage": current,
			})
			return
		}

		if _, err := db.Exec(`UPDATE opportunities SET stage = $1, updated_at = $2 WHERE id = $3`,
			req.Stage, time.Now(), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update opportunity"})
			return
		}

		// Closing won seeds a draft quotation so the deal flows straight into
		// the quoting pipeline. Failure to seed does not undo the stage change.
		var quotationID int
		if req.Stage == models.StageClosedWon && amount > 0 {
			folio := repository.GenerateFolio(repository.FolioPrefixQuotation)
			now := time.Now()
			err := db.QueryRow(`
				INSERT INTO quotations (folio, account_id, total_amount, currency, status, valid_from, valid_until, created_by, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
				folio, accountID, amount, currency, models.QuotationPending,
				now, now.AddDate(0, 0, 30), session.UserID, now,
			).Scan(&quotationID)
			if err != nil {
				log.Printf("Failed to seed quotation for opportunity %d: %v", id, err)
				quotationID = 0
			}
		}

		data := gin.H{"stage": req.Stage}
		if quotationID != 0 {
			data["quotation_id"] = quotationID
		}
		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Opportunity stage updated",
			Data:    data,
		})

		logActivity(db, session, userName, "Opportunity", "Update Stage",
			fmt.Sprintf("Opportunity %s: %s -> %s", name, current, req.Stage),
			"opportunity", id)
	}
}

// UpdateOpportunity edits opportunity details other than the stage
// @Summary Update opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param request body models.Opportunity true "Opportunity"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/opportunities/{id} [put]
func UpdateOpportunity(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid opportunity ID"})
			return
		}

		var opp models.Opportunity
		if err := c.ShouldBindJSON(&opp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE opportunities
			SET name = $1, amount = $2, currency = $3, expected_close_date = $4, owner_id = $5, updated_at = $6
			WHERE id = $7`,
			opp.Name, opp.Amount, opp.Currency, opp.ExpectedCloseDate, opp.OwnerID, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update opportunity"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Opportunity not found"})
			return
		}
		opp.ID = id

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Opportunity updated successfully",
			Data:    &opp,
		})

		logActivity(db, session, userName, "Opportunity", "Update",
			fmt.Sprintf("Opportunity %s updated", opp.Name), "opportunity", id)
	}
}

// DeleteOpportunity removes an opportunity
// @Summary Delete opportunity
// @Tags Opportunities
// @Produce json
// @Param id path int true "Opportunity ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/opportunities/{id} [delete]
func DeleteOpportunity(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid opportunity ID"})
			return
		}

		result, err := db.Exec(`DELETE FROM opportunities WHERE id = $1`, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete opportunity"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Opportunity not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Opportunity deleted successfully",
		})

		logActivity(db, session, userName, "Opportunity", "Delete",
			fmt.Sprintf("Opportunity %d deleted", id), "opportunity", id)
	}
}
