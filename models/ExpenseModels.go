package models

import (
	"time"

	_ "github.com/lib/pq"
)

type Expense struct {
	ID           int       `json:"id" example:"1"`
	Amount       float64   `json:"amount" binding:"required" example:"245.80"`
	Currency     string    `json:"currency" example:"USD"`
	ExpenseDate  time.Time `json:"expense_date"`
	CategoryID   int       `json:"category_id" example:"2"`
	CategoryName string    `json:"category_name,omitempty"`
	Vendor       string    `json:"vendor" example:"Hilton Garden Inn"`
	ReceiptFile  string    `json:"receipt_file,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Approved     bool      `json:"approved" example:"false"`
	OCRJobID     *int      `json:"ocr_job_id,omitempty"`
	CreatedBy    int       `json:"created_by" example:"1"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type ExpenseCategory struct {
	ID        int       `json:"id" example:"1"`
	Name      string    `json:"name" binding:"required" example:"Travel"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ExpenseImportRow is one parsed row from an xls/xlsx/tsv bulk import file.
type ExpenseImportRow struct {
	RowNumber int     `json:"row_number"`
	Vendor    string  `json:"vendor"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Date      string  `json:"date"`
	Category  string  `json:"category"`
	Notes     string  `json:"notes"`
	Error     string  `json:"error,omitempty"`
}

type ExpenseImportResult struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Imported   int                `json:"imported"`
	Skipped    int                `json:"skipped"`
	FailedRows []ExpenseImportRow `json:"failed_rows,omitempty"`
}
