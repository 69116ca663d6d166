package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"onquota/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// GetCurrencies lists supported currencies
// @Summary List currencies
// @Tags Currencies
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/currencies [get]
func GetCurrencies(db *sql.DB) gin.HandlerFunc {
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

		rows, err := db.Query(`SELECT id, code, name, symbol FROM currencies ORDER BY code`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch currencies"})
			return
		}
		defer rows.Close()

		currencies := []models.Currency{}
		for rows.Next() {
			var cur models.Currency
			var name, symbol sql.NullString
			if err := rows.Scan(&cur.ID, &cur.Code, &name, &symbol); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan currency"})
				return
			}
			cur.Name = name.String
			cur.Symbol = symbol.String
			currencies = append(currencies, cur)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating currencies"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Currencies retrieved successfully",
			Data:    currencies,
		})
	}
}

// CreateCurrency adds a currency
// @Summary Create currency
// @Tags Currencies
// @Accept json
// @Produce json
// @Param request body models.Currency true "Currency"
// @Success 201 {object} models.SuccessResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/currencies [post]
func CreateCurrency(db *sql.DB) gin.HandlerFunc {
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

		var currency models.Currency
		if err := c.ShouldBindJSON(&currency); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		currency.Code = strings.ToUpper(strings.TrimSpace(currency.Code))
		if len(currency.Code) != 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Currency code must be 3 letters"})
			return
		}

		err := db.QueryRow(`
			INSERT INTO currencies (code, name, symbol) VALUES ($1, $2, $3) RETURNING id`,
			currency.Code, currency.Name, currency.Symbol).Scan(&currency.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Currency already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create currency"})
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Currency created successfully",
			Data:    &currency,
		})
	}
}
