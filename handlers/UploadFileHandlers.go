package handlers

import (
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeReceiptFile streams a stored receipt back to the client
// @Summary Download receipt file
// @Tags Files
// @Produce octet-stream
// @Param name path string true "Stored file name"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /api/files/receipts/{name} [get]
func ServeReceiptFile(db *sql.DB) gin.HandlerFunc {
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

		name := c.Param("name")
		// Reject anything that could escape the upload directory.
		if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
			return
		}

		fullPath := filepath.Join(receiptUploadDir, name)
		if _, err := os.Stat(fullPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		c.FileAttachment(fullPath, name)
	}
}
