package models

import (
	"time"

	_ "github.com/lib/pq"
)

// Quotation statuses
const (
	QuotationPending = "pending"
	QuotationWon     = "won"
	QuotationLost    = "lost"
)

// Sales control statuses
const (
	ControlPending      = "pending"
	ControlInProduction = "in_production"
	ControlDelivered    = "delivered"
	ControlInvoiced     = "invoiced"
	ControlPaid         = "paid"
	ControlCancelled    = "cancelled"
)

type Quotation struct {
	ID             int        `json:"id" example:"1"`
	Folio          string     `json:"folio" example:"QT/AB12345"`
	AccountID      int        `json:"account_id" binding:"required" example:"1"`
	AccountName    string     `json:"account_name,omitempty"`
	TotalAmount    float64    `json:"total_amount" example:"300000.00"`
	Currency       string     `json:"currency" example:"USD"`
	Status         string     `json:"status" example:"pending"`
	ValidFrom      time.Time  `json:"valid_from"`
	ValidUntil     time.Time  `json:"valid_until"`
	Expired        bool       `json:"expired" example:"false"`
	WonDate        *time.Time `json:"won_date,omitempty"`
	LostDate       *time.Time `json:"lost_date,omitempty"`
	LostReason     string     `json:"lost_reason,omitempty"`
	SalesControlID *int       `json:"sales_control_id,omitempty"`
	CreatedBy      int        `json:"created_by" example:"1"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}

// WinLine apportions part of a won quotation's amount to a product line.
type WinLine struct {
	ProductLineID int     `json:"product_line_id" binding:"required" example:"3"`
	LineAmount    float64 `json:"line_amount" binding:"required" example:"100000.00"`
}

type WinQuotationRequest struct {
	WonDate           string    `json:"won_date" example:"2024-02-01"`
	SalesControlFolio string    `json:"sales_control_folio" example:"SC/CD67890"`
	PONumber          string    `json:"po_number" example:"PO-2024-0117"`
	POReceptionDate   string    `json:"po_reception_date" example:"2024-02-01"`
	LeadTimeDays      int       `json:"lead_time_days" example:"45"`
	AssigneeID        int       `json:"assignee_id" example:"2"`
	Lines             []WinLine `json:"lines"`
}

type LoseQuotationRequest struct {
	LostDate   string `json:"lost_date" example:"2024-02-01"`
	LostReason string `json:"lost_reason" example:"Competitor undercut on price"`
}

type SalesControl struct {
	ID                 int                `json:"id" example:"1"`
	Folio              string             `json:"folio" example:"SC/CD67890"`
	QuotationID        int                `json:"quotation_id" example:"1"`
	PONumber           string             `json:"po_number" example:"PO-2024-0117"`
	POReceptionDate    time.Time          `json:"po_reception_date"`
	LeadTimeDays       int                `json:"lead_time_days" example:"45"`
	PromiseDate        *time.Time         `json:"promise_date,omitempty"`
	AccountID          int                `json:"account_id" example:"1"`
	AccountName        string             `json:"account_name,omitempty"`
	AssigneeID         int                `json:"assignee_id" example:"2"`
	AssigneeName       string             `json:"assignee_name,omitempty"`
	TotalAmount        float64            `json:"total_amount" example:"300000.00"`
	Currency           string             `json:"currency" example:"USD"`
	Status             string             `json:"status" example:"pending"`
	StatusOrdinal      int                `json:"status_ordinal" example:"0"`
	Overdue            bool               `json:"overdue" example:"false"`
	ActualDeliveryDate *time.Time         `json:"actual_delivery_date,omitempty"`
	InvoiceNumber      string             `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time         `json:"invoice_date,omitempty"`
	PaymentDate        *time.Time         `json:"payment_date,omitempty"`
	CancelReason       string             `json:"cancel_reason,omitempty"`
	VehicleID          *int               `json:"vehicle_id,omitempty"`
	DriverName         string             `json:"driver_name,omitempty"`
	Lines              []SalesControlLine `json:"lines,omitempty"`
	CreatedAt          time.Time          `json:"created_at,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at,omitempty"`
}

type SalesControlLine struct {
	ID              int     `json:"id" example:"1"`
	SalesControlID  int     `json:"sales_control_id" example:"1"`
	ProductLineID   int     `json:"product_line_id" example:"3"`
	ProductLineName string  `json:"product_line_name,omitempty"`
	Amount          float64 `json:"amount" example:"100000.00"`
	// PercentOfTotal is derived from the parent control's total, never stored.
	PercentOfTotal float64 `json:"percent_of_total" example:"33.33"`
}

type MarkDeliveredRequest struct {
	ActualDeliveryDate string `json:"actual_delivery_date" example:"2024-03-15"`
	VehicleID          int    `json:"vehicle_id" example:"4"`
	DriverName         string `json:"driver_name" example:"R. Kumar"`
}

type MarkInvoicedRequest struct {
	InvoiceNumber string `json:"invoice_number" example:"INV-2024-0099"`
	InvoiceDate   string `json:"invoice_date" example:"2024-03-20"`
}

type MarkPaidRequest struct {
	PaymentDate string `json:"payment_date" example:"2024-04-10"`
}

type CancelControlRequest struct {
	Reason string `json:"reason" example:"Client withdrew the order"`
}

type UpdateLeadTimeRequest struct {
	LeadTimeDays int `json:"lead_time_days" binding:"required" example:"60"`
}

// ProductLine is a categorization dimension for quota and sales-control amounts.
type ProductLine struct {
	ID           int       `json:"id" example:"1"`
	Name         string    `json:"name" binding:"required" example:"Hydraulic Systems"`
	Code         string    `json:"code" example:"HYD"`
	Description  string    `json:"description" example:""`
	Color        string    `json:"color" example:"#2563EB"`
	DisplayOrder int       `json:"display_order" example:"1"`
	Active       bool      `json:"active" example:"true"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// WinQuotationResponse returns the updated quotation, the created sales control,
// and a reconciliation warning when line amounts do not sum to the quotation total.
type WinQuotationResponse struct {
	Success           bool          `json:"success"`
	Message           string        `json:"message"`
	Quotation         *Quotation    `json:"quotation,omitempty"`
	SalesControl      *SalesControl `json:"sales_control,omitempty"`
	LineTotalMismatch bool          `json:"line_total_mismatch"`
	LineTotal         float64       `json:"line_total"`
	QuotationTotal    float64       `json:"quotation_total"`
}
