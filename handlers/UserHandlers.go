package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"onquota/models"
	"onquota/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateUser registers a user account
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.User true "User"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/users [post]
func CreateUser(db *sql.DB) gin.HandlerFunc {
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

		var isAdmin bool
		if err := db.QueryRow(`SELECT is_admin FROM users WHERE id = $1`, session.UserID).Scan(&isAdmin); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only administrators can create users"})
			return
		}

		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if user.Email == "" || user.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		err = db.QueryRow(`
			INSERT INTO users (employee_id, email, password, first_name, last_name, phone_no, role_id, is_admin, suspended, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $9) RETURNING id`,
			user.EmployeeId, user.Email, hashed, user.FirstName, user.LastName,
			user.PhoneNo, user.RoleID, user.IsAdmin, time.Now()).Scan(&user.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "User with this email or employee id already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}
		user.Password = ""

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "User created successfully",
			Data:    &user,
		})

		logActivity(db, session, userName, "User", "Create",
			fmt.Sprintf("User %s created", user.Email), "user", user.ID)
	}
}

// GetUsers lists users
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/users [get]
func GetUsers(db *sql.DB) gin.HandlerFunc {
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

		rows, err := db.Query(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.phone_no,
				   u.role_id, COALESCE(r.role_name, ''), u.is_admin, u.suspended, u.created_at, u.updated_at
			FROM users u
			LEFT JOIN roles r ON u.role_id = r.role_id
			ORDER BY u.first_name, u.last_name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			var u models.User
			var employeeID, phoneNo sql.NullString
			err := rows.Scan(&u.ID, &employeeID, &u.Email, &u.FirstName, &u.LastName, &phoneNo,
				&u.RoleID, &u.RoleName, &u.IsAdmin, &u.Suspended, &u.CreatedAt, &u.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user"})
				return
			}
			u.EmployeeId = employeeID.String
			u.PhoneNo = phoneNo.String
			users = append(users, u)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating users"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Users retrieved successfully",
			Data:    users,
		})
	}
}

// GetProfile returns the calling user's profile
// @Summary Get own profile
// @Tags Users
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/users/me [get]
func GetProfile(db *sql.DB) gin.HandlerFunc {
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

		var u models.User
		var employeeID, phoneNo, profilePic sql.NullString
		err = db.QueryRow(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.phone_no,
				   u.profile_picture, u.role_id, COALESCE(r.role_name, ''), u.is_admin, u.created_at
			FROM users u
			LEFT JOIN roles r ON u.role_id = r.role_id
			WHERE u.id = $1`, session.UserID).
			Scan(&u.ID, &employeeID, &u.Email, &u.FirstName, &u.LastName, &phoneNo,
				&profilePic, &u.RoleID, &u.RoleName, &u.IsAdmin, &u.CreatedAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
			return
		}
		u.EmployeeId = employeeID.String
		u.PhoneNo = phoneNo.String
		u.ProfilePic = profilePic.String

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Profile retrieved successfully",
			Data:    &u,
		})
	}
}

// SuspendUser toggles a user's suspension flag
// @Summary Suspend or unsuspend user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Param suspend query bool true "Suspend or unsuspend"
// @Success 200 {object} models.SuccessResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id}/suspend [post]
func SuspendUser(db *sql.DB) gin.HandlerFunc {
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

		var isAdmin bool
		if err := db.QueryRow(`SELECT is_admin FROM users WHERE id = $1`, session.UserID).Scan(&isAdmin); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only administrators can suspend users"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		suspend := c.Query("suspend") == "true"

		result, err := db.Exec(`UPDATE users SET suspended = $1, updated_at = $2 WHERE id = $3`,
			suspend, time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		// Suspension evicts every live session for the user.
		if suspend {
			if _, err := db.Exec(`DELETE FROM session WHERE user_id = $1`, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear sessions"})
				return
			}
		}

		action := "unsuspended"
		if suspend {
			action = "suspended"
		}
		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: fmt.Sprintf("User %s", action),
		})

		logActivity(db, session, userName, "User", "Suspend",
			fmt.Sprintf("User %d %s", id, action), "user", id)
	}
}
