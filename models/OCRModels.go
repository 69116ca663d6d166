package models

import (
	"time"

	"gorm.io/gorm"
)

// OCR job statuses
const (
	OCRJobPending    = "pending"
	OCRJobProcessing = "processing"
	OCRJobCompleted  = "completed"
	OCRJobFailed     = "failed"
)

// OCRJobGorm represents the ocr_jobs table with GORM tags
type OCRJobGorm struct {
	ID            uint           `gorm:"primaryKey;column:id" json:"id" example:"1"`
	Status        string         `gorm:"column:status;not null;default:pending" json:"status" example:"pending"`
	ReceiptFile   string         `gorm:"column:receipt_file;not null" json:"receipt_file"`
	ProviderJobID string         `gorm:"column:provider_job_id" json:"provider_job_id,omitempty"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts" example:"0"`
	ErrorMessage  string         `gorm:"column:error_message" json:"error_message,omitempty"`
	Merchant      string         `gorm:"column:merchant" json:"merchant,omitempty"`
	Amount        float64        `gorm:"column:amount" json:"amount,omitempty"`
	Currency      string         `gorm:"column:currency" json:"currency,omitempty"`
	ExpenseDate   string         `gorm:"column:expense_date" json:"expense_date,omitempty"`
	Category      string         `gorm:"column:category" json:"category,omitempty"`
	Confidence    float64        `gorm:"column:confidence" json:"confidence,omitempty"`
	LineItems     string         `gorm:"column:line_items" json:"line_items,omitempty"` // JSON blob
	CreatedBy     int            `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for OCRJobGorm
func (OCRJobGorm) TableName() string {
	return "ocr_jobs"
}

// Terminal reports whether the job has reached a final extraction state.
func (j *OCRJobGorm) Terminal() bool {
	return j.Status == OCRJobCompleted || j.Status == OCRJobFailed
}

// OCRLineItem is one extracted receipt line.
type OCRLineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
}

// ConfirmExtractionRequest carries user-corrected extraction data. Any field
// left zero keeps the extracted value; the confidence score is not re-checked.
type ConfirmExtractionRequest struct {
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	ExpenseDate string  `json:"expense_date" example:"2024-02-01"`
	CategoryID  int     `json:"category_id"`
	Notes       string  `json:"notes"`
}

// OCRJobResponse represents the response for OCR job operations
type OCRJobResponse struct {
	Success bool        `json:"success" example:"true"`
	Message string      `json:"message" example:"Success"`
	Data    *OCRJobGorm `json:"data,omitempty"`
	Error   string      `json:"error,omitempty" example:""`
}
