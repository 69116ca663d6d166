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

// Vehicle statuses
const (
	VehicleActive      = "active"
	VehicleMaintenance = "maintenance"
	VehicleRetired     = "retired"
)

const (
	insertVehicleQuery = `
		INSERT INTO vehicles (plate_number, status, driver_name, vehicle_type, driver_contact_no, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`

	selectVehiclesQuery = `
		SELECT id, plate_number, status, driver_name, vehicle_type, driver_contact_no, capacity, created_at, updated_at
		FROM vehicles ORDER BY plate_number`

	updateVehicleQuery = `
		UPDATE vehicles
		SET plate_number = $1, status = $2, driver_name = $3, vehicle_type = $4, driver_contact_no = $5, capacity = $6, updated_at = $7
		WHERE id = $8`

	deleteVehicleQuery = `DELETE FROM vehicles WHERE id = $1`
)

// CreateVehicle registers a delivery vehicle
// @Summary Create vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param request body models.Vehicle true "Vehicle"
// @Success 201 {object} models.SuccessResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/vehicles [post]
func CreateVehicle(db *sql.DB) gin.HandlerFunc {
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

		var vehicle models.Vehicle
		if err := c.ShouldBindJSON(&vehicle); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if vehicle.Status == "" {
			vehicle.Status = VehicleActive
		}

		err = db.QueryRow(insertVehicleQuery,
			vehicle.PlateNumber, vehicle.Status, vehicle.DriverName, vehicle.VehicleType,
			vehicle.DriverContactNo, vehicle.Capacity, time.Now()).Scan(&vehicle.ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Vehicle with this plate number already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Vehicle created successfully",
			Data:    &vehicle,
		})

		logActivity(db, session, userName, "Vehicle", "Create",
			fmt.Sprintf("Vehicle %s registered", vehicle.PlateNumber), "vehicle", vehicle.ID)
	}
}

// GetVehicles lists all vehicles
// @Summary List vehicles
// @Tags Vehicles
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/vehicles [get]
func GetVehicles(db *sql.DB) gin.HandlerFunc {
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

		rows, err := db.Query(selectVehiclesQuery)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vehicles"})
			return
		}
		defer rows.Close()

		vehicles := []models.Vehicle{}
		for rows.Next() {
			var v models.Vehicle
			var driverName, vehicleType, driverContact sql.NullString
			var capacity sql.NullFloat64
			err := rows.Scan(&v.ID, &v.PlateNumber, &v.Status, &driverName, &vehicleType,
				&driverContact, &capacity, &v.CreatedAt, &v.UpdatedAt)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan vehicle"})
				return
			}
			v.DriverName = driverName.String
			v.VehicleType = vehicleType.String
			v.DriverContactNo = driverContact.String
			v.Capacity = capacity.Float64
			vehicles = append(vehicles, v)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating vehicles"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Vehicles retrieved successfully",
			Data:    vehicles,
		})
	}
}

// UpdateVehicle edits a vehicle
// @Summary Update vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param id path int true "Vehicle ID"
// @Param request body models.Vehicle true "Vehicle"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/vehicles/{id} [put]
func UpdateVehicle(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
			return
		}

		var vehicle models.Vehicle
		if err := c.ShouldBindJSON(&vehicle); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if vehicle.Status != VehicleActive && vehicle.Status != VehicleMaintenance && vehicle.Status != VehicleRetired {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown vehicle status"})
			return
		}

		result, err := db.Exec(updateVehicleQuery,
			vehicle.PlateNumber, vehicle.Status, vehicle.DriverName, vehicle.VehicleType,
			vehicle.DriverContactNo, vehicle.Capacity, time.Now(), id)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Vehicle with this plate number already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}
		vehicle.ID = id

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Vehicle updated successfully",
			Data:    &vehicle,
		})

		logActivity(db, session, userName, "Vehicle", "Update",
			fmt.Sprintf("Vehicle %s updated", vehicle.PlateNumber), "vehicle", id)
	}
}

// DeleteVehicle removes a vehicle not referenced by deliveries
// @Summary Delete vehicle
// @Tags Vehicles
// @Produce json
// @Param id path int true "Vehicle ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/vehicles/{id} [delete]
func DeleteVehicle(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
			return
		}

		var referenced bool
		err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM sales_controls WHERE vehicle_id = $1)`, id).Scan(&referenced)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if referenced {
			c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is referenced by deliveries; mark it retired instead"})
			return
		}

		result, err := db.Exec(deleteVehicleQuery, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vehicle"})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Message: "Vehicle deleted successfully",
		})

		logActivity(db, session, userName, "Vehicle", "Delete",
			fmt.Sprintf("Vehicle %d deleted", id), "vehicle", id)
	}
}
