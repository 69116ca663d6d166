package models

import (
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	EmployeeId  string    `json:"employee_id" example:"EMP001"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	FirstAccess time.Time `json:"first_access,omitempty" example:"2024-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
	ProfilePic  string    `json:"profile_picture" example:""`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	RoleID      int       `json:"role_id" example:"1"`
	RoleName    string    `json:"role_name" example:"Sales Manager"`
	Suspended   bool      `json:"suspended" example:"false"`
	TenantID    int       `json:"tenant_id" example:"1"`
}

type Session struct {
	UserID                int       `json:"user_id"`
	SessionID             string    `json:"session_id"`
	HostName              string    `json:"host_name"`
	IPAddress             string    `json:"ip_address"`
	Timestamp             time.Time `json:"timestamp"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:""`
	IP       string `json:"ip" example:"10.0.0.1"`
}

type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"` // unread, read
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ActivityLog struct {
	ID           int       `json:"id"`
	EventContext string    `json:"event_context"`
	EventName    string    `json:"event_name"`
	Description  string    `json:"description"`
	UserName     string    `json:"user_name"`
	HostName     string    `json:"host_name"`
	IPAddress    string    `json:"ip_address"`
	EntityType   string    `json:"entity_type,omitempty"`
	EntityID     int       `json:"entity_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account is a client company tracked for account planning.
type Account struct {
	ID           int       `json:"id" example:"1"`
	Name         string    `json:"name" binding:"required" example:"Acme Industrial"`
	Industry     string    `json:"industry" example:"Manufacturing"`
	ContactName  string    `json:"contact_name" example:"Jane Smith"`
	ContactEmail string    `json:"contact_email" example:"jane@acme.com"`
	ContactPhone string    `json:"contact_phone" example:"5551234567"`
	OwnerID      int       `json:"owner_id" example:"1"`
	OwnerName    string    `json:"owner_name,omitempty"`
	Notes        string    `json:"notes" example:""`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Opportunity pipeline stages
const (
	StageProspecting   = "prospecting"
	StageQualification = "qualification"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosedWon     = "closed_won"
	StageClosedLost    = "closed_lost"
)

type Opportunity struct {
	ID                int        `json:"id" example:"1"`
	AccountID         int        `json:"account_id" binding:"required" example:"1"`
	AccountName       string     `json:"account_name,omitempty"`
	Name              string     `json:"name" binding:"required" example:"FY26 plant expansion"`
	Amount            float64    `json:"amount" example:"125000.00"`
	Currency          string     `json:"currency" example:"USD"`
	Stage             string     `json:"stage" example:"prospecting"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	OwnerID           int        `json:"owner_id" example:"1"`
	OwnerName         string     `json:"owner_name,omitempty"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at,omitempty"`
}

type Vehicle struct {
	ID              int       `json:"id" example:"1"`
	PlateNumber     string    `json:"plate_number" binding:"required" example:"MH12AB1234"`
	Status          string    `json:"status" example:"active"`
	DriverName      string    `json:"driver_name" example:"R. Kumar"`
	VehicleType     string    `json:"vehicle_type" example:"flatbed"`
	DriverContactNo string    `json:"driver_contact_no" example:"9876543210"`
	Capacity        float64   `json:"capacity" example:"12.5"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

type Currency struct {
	ID     int    `json:"id" example:"1"`
	Code   string `json:"code" binding:"required" example:"USD"`
	Name   string `json:"name" example:"US Dollar"`
	Symbol string `json:"symbol" example:"$"`
}

// DeviceToken holds a push registration for a user's device.
type DeviceToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"` // android, ios, web
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
