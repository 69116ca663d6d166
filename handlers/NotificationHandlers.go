package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/repository"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications, newest first
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param unread query bool false "Only unread"
// @Success 200 {object} models.PaginatedResponse
// @Router /api/notifications [get]
func GetNotifications(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		session, _, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		page, pageSize := repository.ParsePagination(c)
		offset := (page - 1) * pageSize

		where := "WHERE user_id = $1"
		args := []interface{}{session.UserID}
		if c.Query("unread") == "true" {
			where += " AND status = 'unread'"
		}

		var total int
		if err := db.QueryRow("SELECT COUNT(*) FROM notifications "+where, args...).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
			return
		}

		args = append(args, pageSize, offset)
		rows, err := db.Query(`
			SELECT id, user_id, message, status, action, created_at, updated_at
			FROM notifications `+where+`
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
			return
		}
		defer rows.Close()

		notifications := []models.Notification{}
		for rows.Next() {
			var n models.Notification
			var action sql.NullString
			if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &action, &n.CreatedAt, &n.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
				return
			}
			n.Action = action.String
			notifications = append(notifications, n)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notifications"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      notifications,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(total, pageSize),
		})
	}
}

// MarkNotificationRead marks one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id} [put]
func MarkNotificationRead(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		session, _, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
			return
		}

		result, err := db.Exec(`
			UPDATE notifications SET status = 'read', updated_at = $1 WHERE id = $2 AND user_id = $3`,
			time.Now(), id, session.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Notification marked read",
		})
	}
}

// MarkAllNotificationsRead marks every unread notification read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/notifications [put]
func MarkAllNotificationsRead(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		session, _, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE notifications SET status = 'read', updated_at = $1 WHERE user_id = $2 AND status = 'unread'`,
			time.Now(), session.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
			return
		}
		affected, _ := result.RowsAffected()

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "All notifications marked read",
			Data:    gin.H{"updated": affected},
		})
	}
}

// RegisterDeviceToken stores a push registration for the caller
// @Summary Register device token
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body models.DeviceToken true "Device token"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/device-tokens [post]
func RegisterDeviceToken(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id header is missing"})
			return
		}
		session, _, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var token models.DeviceToken
		if err := c.ShouldBindJSON(&token); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if token.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}

		// Re-registering an existing token moves it to the current user.
		_, err = db.Exec(`
			INSERT INTO device_tokens (user_id, token, platform, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (token)
			DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at`,
			session.UserID, token.Token, token.Platform, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device token"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Device token registered",
		})
	}
}
