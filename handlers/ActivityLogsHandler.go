package handlers

import (
	"database/sql"
	"math"
	"net/http"
	"strconv"

	"onquota/models"

	"github.com/gin-gonic/gin"
)

// Helper to fetch session details
func GetSessionDetails(db *sql.DB, sessionID string) (models.Session, string, error) {
	var session models.Session
	var userName string

	query := `
        SELECT s.user_id, CONCAT(u.first_name, ' ', u.last_name) AS user_name, s.host_name, s.ip_address
        FROM session s
        JOIN users u ON s.user_id = u.id
        WHERE s.session_id = $1`

	err := db.QueryRow(query, sessionID).Scan(
		&session.UserID,
		&userName,
		&session.HostName,
		&session.IPAddress,
	)
	if err != nil {
		return models.Session{}, "", err
	}
	return session, userName, nil
}

// Helper to save activity logs
func SaveActivityLog(db *sql.DB, log models.ActivityLog) error {
	query := `
    INSERT INTO activity_logs (
        created_at, user_name, host_name, event_context, ip_address,
        description, event_name, entity_type, entity_id
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := db.Exec(query,
		log.CreatedAt, log.UserName, log.HostName, log.EventContext, log.IPAddress,
		log.Description, log.EventName, log.EntityType, log.EntityID,
	)
	return err
}

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Param        page       query  int  false  "Page"
// @Param        page_size  query  int  false  "Page size"
// @Success      200    {object}  models.PaginatedResponse
// @Router       /api/activity-logs [get]
func GetActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		if err != nil || pageSize < 1 {
			pageSize = 20
		}

		offset := (page - 1) * pageSize

		var total int
		if err := db.QueryRow(`SELECT COUNT(*) FROM activity_logs`).Scan(&total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		query := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, entity_type, entity_id
			FROM activity_logs
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`

		rows, err := db.Query(query, pageSize, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying logs"})
			return
		}
		defer rows.Close()

		logs := []models.ActivityLog{}
		for rows.Next() {
			var (
				entry        models.ActivityLog
				userName     sql.NullString
				hostName     sql.NullString
				eventContext sql.NullString
				ipAddress    sql.NullString
				description  sql.NullString
				eventName    sql.NullString
				entityType   sql.NullString
				entityID     sql.NullInt64
			)

			err := rows.Scan(
				&entry.ID, &entry.CreatedAt, &userName, &hostName, &eventContext, &ipAddress,
				&description, &eventName, &entityType, &entityID,
			)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}

			entry.UserName = getStringOrEmpty(userName)
			entry.HostName = getStringOrEmpty(hostName)
			entry.EventContext = getStringOrEmpty(eventContext)
			entry.IPAddress = getStringOrEmpty(ipAddress)
			entry.Description = getStringOrEmpty(description)
			entry.EventName = getStringOrEmpty(eventName)
			entry.EntityType = getStringOrEmpty(entityType)
			entry.EntityID = getIntOrZero(entityID)

			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      logs,
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		})
	}
}

func getStringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func getIntOrZero(ni sql.NullInt64) int {
	if ni.Valid {
		return int(ni.Int64)
	}
	return 0
}
