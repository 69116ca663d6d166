package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"onquota/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateProductLine adds a product line
// @Summary Create product line
// @Tags ProductLines
// @Accept json
// @Produce json
// @Param request body models.ProductLine true "Product line"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/product-lines [post]
func CreateProductLine(db *sql.DB) gin.HandlerFunc {
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

		var line models.ProductLine
		if err := c.ShouldBindJSON(&line); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err = db.QueryRow(`
			INSERT INTO product_lines (name, code, description, color, display_order, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, $6, $6) RETURNING id`,
			line.Name, line.Code, line.Description, line.Color, line.DisplayOrder, time.Now()).Scan(&line.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Product line with this name or code already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product line"})
			return
		}
		line.Active = true

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Product line created successfully",
			Data:    &line,
		})

		logActivity(db, session, userName, "Product Line", "Create",
			fmt.Sprintf("Product line %s created", line.Name), "product_line", line.ID)
	}
}

// GetProductLines lists product lines ordered for display
// @Summary List product lines
// @Tags ProductLines
// @Produce json
// @Param include_inactive query bool false "Include inactive lines"
// @Success 200 {object} models.SuccessResponse
// @Router /api/product-lines [get]
func GetProductLines(db *sql.DB) gin.HandlerFunc {
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

		query := `SELECT id, name, code, description, color, display_order, active, created_at, updated_at
			FROM product_lines`
		if c.Query("include_inactive") != "true" {
			query += " WHERE active = true"
		}
		query += " ORDER BY display_order, name"

		rows, err := db.Query(query)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product lines"})
			return
		}
		defer rows.Close()

		lines := []models.ProductLine{}
		for rows.Next() {
			var line models.ProductLine
			var code, description, color sql.NullString
			err := rows.Scan(&line.ID, &line.Name, &code, &description, &color,
				&line.DisplayOrder, &line.Active, &line.CreatedAt, &line.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product line"})
				return
			}
			line.Code = code.String
			line.Description = description.String
			line.Color = color.String
			lines = append(lines, line)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating product lines"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Product lines retrieved successfully",
			Data:    lines,
		})
	}
}

// UpdateProductLine edits a product line
// @Summary Update product line
// @Tags ProductLines
// @Accept json
// @Produce json
// @Param id path int true "Product line ID"
// @Param request body models.ProductLine true "Product line"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/product-lines/{id} [put]
func UpdateProductLine(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product line ID"})
			return
		}

		var line models.ProductLine
		if err := c.ShouldBindJSON(&line); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE product_lines
			SET name = $1, code = $2, description = $3, color = $4, display_order = $5, active = $6, updated_at = $7
			WHERE id = $8`,
			line.Name, line.Code, line.Description, line.Color, line.DisplayOrder, line.Active, time.Now(), id)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Product line with this name or code already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product line"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product line not found"})
			return
		}
		line.ID = id

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Product line updated successfully",
			Data:    &line,
		})

		logActivity(db, session, userName, "Product Line", "Update",
			fmt.Sprintf("Product line %s updated", line.Name), "product_line", id)
	}
}

// DeleteProductLine removes a product line that no sales control references.
// Referenced lines are deactivated instead of deleted.
// @Summary Delete product line
// @Tags ProductLines
// @Produce json
// @Param id path int true "Product line ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/product-lines/{id} [delete]
func DeleteProductLine(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product line ID"})
			return
		}

		var referenced bool
		err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM sales_control_lines WHERE product_line_id = $1)`, id).Scan(&referenced)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if referenced {
			c.JSON(http.StatusConflict, gin.H{"error": "Product line is referenced by sales controls; deactivate it instead"})
			return
		}

		result, err := db.Exec(`DELETE FROM product_lines WHERE id = $1`, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product line"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product line not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Product line deleted successfully",
		})

		logActivity(db, session, userName, "Product Line", "Delete",
			fmt.Sprintf("Product line %d deleted", id), "product_line", id)
	}
}
