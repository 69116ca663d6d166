package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"onquota/models"

	"github.com/gin-gonic/gin"
)

// DashboardSummary aggregates the executive dashboard numbers.
type DashboardSummary struct {
	QuotationCounts     map[string]int      `json:"quotation_counts"`
	WinRate             float64             `json:"win_rate"`
	ControlCounts       map[string]int      `json:"control_counts"`
	OverdueControls     int                 `json:"overdue_controls"`
	PipelineByStage     []StageAmount       `json:"pipeline_by_stage"`
	AchievementByLine   []ProductLineAmount `json:"achievement_by_line"`
	ExpensesByCategory  []CategoryAmount    `json:"expenses_by_category"`
	UnapprovedExpenses  int                 `json:"unapproved_expenses"`
	Period              string              `json:"period"`
}

type StageAmount struct {
	Stage  string  `json:"stage"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type ProductLineAmount struct {
	ProductLineID   int     `json:"product_line_id"`
	ProductLineName string  `json:"product_line_name"`
	Amount          float64 `json:"amount"`
}

type CategoryAmount struct {
	CategoryName string  `json:"category_name"`
	Amount       float64 `json:"amount"`
}

// GetDashboard returns the executive summary for a YYYY-MM period
// @Summary Executive dashboard
// @Tags Dashboard
// @Produce json
// @Param period query string false "Period (YYYY-MM), defaults to the current month"
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/dashboard/summary [get]
func GetDashboard(db *sql.DB) gin.HandlerFunc {
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

		period := c.Query("period")
		if period == "" {
			period = time.Now().Format("2006-01")
		} else if _, err := time.Parse("2006-01", period); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period, expected YYYY-MM"})
			return
		}

		summary := DashboardSummary{
			QuotationCounts: map[string]int{},
			ControlCounts:   map[string]int{},
			Period:          period,
		}

		rows, err := db.Query(`SELECT status, COUNT(*) FROM quotations GROUP BY status`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate quotations"})
			return
		}
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quotation counts"})
				return
			}
			summary.QuotationCounts[status] = count
		}
		rows.Close()

		won := summary.QuotationCounts[models.QuotationWon]
		lost := summary.QuotationCounts[models.QuotationLost]
		if won+lost > 0 {
			summary.WinRate = float64(won) / float64(won+lost)
		}

		rows, err = db.Query(`SELECT status, COUNT(*) FROM sales_controls GROUP BY status`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate sales controls"})
			return
		}
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan control counts"})
				return
			}
			summary.ControlCounts[status] = count
		}
		rows.Close()

		err = db.QueryRow(`
			SELECT COUNT(*) FROM sales_controls
			WHERE promise_date < NOW() AND status IN ('pending', 'in_production')`).Scan(&summary.OverdueControls)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count overdue controls"})
			return
		}

		rows, err = db.Query(`
			SELECT stage, COUNT(*), COALESCE(SUM(amount), 0)
			FROM opportunities
			WHERE stage NOT IN ('closed_won', 'closed_lost')
			GROUP BY stage`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate pipeline"})
			return
		}
		for rows.Next() {
			var sa StageAmount
			if err := rows.Scan(&sa.Stage, &sa.Count, &sa.Amount); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan pipeline"})
				return
			}
			summary.PipelineByStage = append(summary.PipelineByStage, sa)
		}
		rows.Close()

		rows, err = db.Query(`
			SELECT qa.product_line_id, COALESCE(p.name, ''), COALESCE(SUM(qa.achieved_amount), 0)
			FROM quota_achievements qa
			LEFT JOIN product_lines p ON qa.product_line_id = p.id
			WHERE qa.period = $1
			GROUP BY qa.product_line_id, p.name
			ORDER BY p.name`, period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate achievements"})
			return
		}
		for rows.Next() {
			var pa ProductLineAmount
			if err := rows.Scan(&pa.ProductLineID, &pa.ProductLineName, &pa.Amount); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan achievements"})
				return
			}
			summary.AchievementByLine = append(summary.AchievementByLine, pa)
		}
		rows.Close()

		rows, err = db.Query(`
			SELECT COALESCE(ec.name, 'Uncategorized'), COALESCE(SUM(e.amount), 0)
			FROM expenses e
			LEFT JOIN expense_categories ec ON e.category_id = ec.id
			WHERE TO_CHAR(e.expense_date, 'YYYY-MM') = $1
			GROUP BY ec.name
			ORDER BY 2 DESC`, period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate expenses"})
			return
		}
		for rows.Next() {
			var ca CategoryAmount
			if err := rows.Scan(&ca.CategoryName, &ca.Amount); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan expenses"})
				return
			}
			summary.ExpensesByCategory = append(summary.ExpensesByCategory, ca)
		}
		rows.Close()

		err = db.QueryRow(`SELECT COUNT(*) FROM expenses WHERE approved = false`).Scan(&summary.UnapprovedExpenses)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unapproved expenses"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Dashboard retrieved successfully",
			Data:    &summary,
		})
	}
}
