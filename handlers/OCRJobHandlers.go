package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"onquota/models"
	"onquota/repository"
	"onquota/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	receiptUploadDir   = "uploads/receipts"
	maxReceiptFileSize = 10 << 20 // 10 MB
)

var allowedReceiptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// ValidateReceiptUpload checks the filename extension and size before a
// receipt is accepted for extraction.
func ValidateReceiptUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedReceiptExtensions[ext] {
		return fmt.Errorf("unsupported file type %q, allowed: jpg, jpeg, png, pdf", ext)
	}
	if size <= 0 {
		return errors.New("file is empty")
	}
	if size > maxReceiptFileSize {
		return fmt.Errorf("file exceeds the %d MB limit", maxReceiptFileSize>>20)
	}
	return nil
}

// UploadReceipt accepts a receipt file, stores it, creates an OCR job and
// starts polling the provider for the extraction result.
// @Summary Upload receipt for OCR extraction
// @Tags OCR
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt file (jpg, jpeg, png, pdf)"
// @Success 201 {object} models.OCRJobResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/ocr/receipts [post]
func UploadReceipt(db *sql.DB, gormDB *gorm.DB, manager *OCRJobManager) gin.HandlerFunc {
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

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if err := ValidateReceiptUpload(fileHeader.Filename, fileHeader.Size); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := os.MkdirAll(receiptUploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare upload directory"})
			return
		}
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		storedPath := filepath.Join(receiptUploadDir, uuid.New().String()+ext)
		if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt file"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		if !manager.ProviderConfigured() {
			os.Remove(storedPath)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "OCR extraction is not configured"})
			return
		}

		providerJobID, err := manager.SubmitReceipt(ctx, storedPath)
		if err != nil {
			os.Remove(storedPath)
			c.JSON(http.StatusBadGateway, gin.H{"error": "OCR provider rejected the receipt", "details": err.Error()})
			return
		}

		job := models.OCRJobGorm{
			Status:        models.OCRJobPending,
			ReceiptFile:   storedPath,
			ProviderJobID: providerJobID,
			CreatedBy:     session.UserID,
		}
		if err := gormDB.Create(&job).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create OCR job", "details": err.Error()})
			return
		}

		if err := manager.StartPolling(job.ID); err != nil {
			log.Printf("Failed to start poller for OCR job %d: %v", job.ID, err)
		}

		c.JSON(http.StatusCreated, models.OCRJobResponse{
			Success: true,
			Message: "Receipt accepted, extraction in progress",
			Data:    &job,
		})

		logActivity(db, session, userName, "OCR", "Upload Receipt",
			fmt.Sprintf("Receipt %s submitted for extraction", fileHeader.Filename),
			"ocr_job", int(job.ID))
	}
}

// GetOCRJob returns the current state of an extraction job
// @Summary Get OCR job
// @Tags OCR
// @Produce json
// @Param id path int true "OCR job ID"
// @Success 200 {object} models.OCRJobResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/ocr/jobs/{id} [get]
func GetOCRJob(db *sql.DB, gormDB *gorm.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OCR job ID"})
			return
		}

		var job models.OCRJobGorm
		if err := gormDB.First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "OCR job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch OCR job"})
			return
		}

		c.JSON(http.StatusOK, models.OCRJobResponse{
			Success: true,
			Message: "OCR job retrieved successfully",
			Data:    &job,
		})
	}
}

// GetOCRJobs lists extraction jobs for the current user
// @Summary List OCR jobs
// @Tags OCR
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} models.PaginatedResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/ocr/jobs [get]
func GetOCRJobs(db *sql.DB, gormDB *gorm.DB) gin.HandlerFunc {
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
		query := gormDB.Model(&models.OCRJobGorm{}).Where("created_by = ?", session.UserID)
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count OCR jobs"})
			return
		}

		jobs := []models.OCRJobGorm{}
		err = query.Order("created_at DESC").Limit(pageSize).Offset((page - 1) * pageSize).Find(&jobs).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch OCR jobs"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedResponse{
			Items:      jobs,
			Total:      int(total),
			Page:       page,
			PageSize:   pageSize,
			TotalPages: repository.TotalPages(int(total), pageSize),
		})
	}
}

// CancelOCRJob stops the poller and fails the job
// @Summary Cancel OCR job
// @Tags OCR
// @Produce json
// @Param id path int true "OCR job ID"
// @Success 200 {object} models.OCRJobResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/ocr/jobs/{id}/cancel [post]
func CancelOCRJob(db *sql.DB, gormDB *gorm.DB, manager *OCRJobManager) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OCR job ID"})
			return
		}

		var job models.OCRJobGorm
		if err := gormDB.First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "OCR job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch OCR job"})
			return
		}
		if job.Terminal() {
			c.JSON(http.StatusConflict, gin.H{"error": "OCR job is already finished", "status": job.Status})
			return
		}

		manager.StopPolling(job.ID)

		// Conditional write so an in-flight poll result that landed between
		// the Terminal check and here cannot be clobbered, and vice versa.
		res := gormDB.Model(&models.OCRJobGorm{}).
			Where("id = ? AND status IN ?", job.ID, ocrActiveStatuses).
			Updates(map[string]interface{}{
				"status":        models.OCRJobFailed,
				"error_message": "cancelled by user",
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update OCR job"})
			return
		}
		if res.RowsAffected == 0 {
			gormDB.First(&job, id)
			c.JSON(http.StatusConflict, gin.H{"error": "OCR job is already finished", "status": job.Status})
			return
		}
		job.Status = models.OCRJobFailed
		job.ErrorMessage = "cancelled by user"

		c.JSON(http.StatusOK, models.OCRJobResponse{
			Success: true,
			Message: "OCR job cancelled",
			Data:    &job,
		})

		logActivity(db, session, userName, "OCR", "Cancel Job",
			fmt.Sprintf("OCR job %d cancelled", job.ID), "ocr_job", int(job.ID))
	}
}

// RetryOCRJob restarts extraction for a failed or stalled job
// @Summary Retry OCR job
// @Tags OCR
// @Produce json
// @Param id path int true "OCR job ID"
// @Success 200 {object} models.OCRJobResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/ocr/jobs/{id}/retry [post]
func RetryOCRJob(db *sql.DB, gormDB *gorm.DB, manager *OCRJobManager) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OCR job ID"})
			return
		}

		var job models.OCRJobGorm
		if err := gormDB.First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "OCR job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch OCR job"})
			return
		}
		if job.Status == models.OCRJobCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "OCR job already completed"})
			return
		}
		if manager.IsPolling(job.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "OCR job is still being polled"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		if !manager.ProviderConfigured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "OCR extraction is not configured"})
			return
		}

		providerJobID, err := manager.SubmitReceipt(ctx, job.ReceiptFile)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "OCR provider rejected the receipt", "details": err.Error()})
			return
		}

		job.Status = models.OCRJobPending
		job.ProviderJobID = providerJobID
		job.Attempts = 0
		job.ErrorMessage = ""
		if err := gormDB.Save(&job).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update OCR job"})
			return
		}

		if err := manager.StartPolling(job.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restart polling", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.OCRJobResponse{
			Success: true,
			Message: "OCR job restarted",
			Data:    &job,
		})

		logActivity(db, session, userName, "OCR", "Retry Job",
			fmt.Sprintf("OCR job %d resubmitted to the provider", job.ID), "ocr_job", int(job.ID))
	}
}

// ConfirmExtraction turns a completed extraction into an expense record.
// User-provided fields override the extracted values.
// @Summary Confirm OCR extraction into an expense
// @Tags OCR
// @Accept json
// @Produce json
// @Param id path int true "OCR job ID"
// @Param request body models.ConfirmExtractionRequest true "Corrections"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/ocr/jobs/{id}/confirm [post]
func ConfirmExtraction(db *sql.DB, gormDB *gorm.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OCR job ID"})
			return
		}

		var req models.ConfirmExtractionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var job models.OCRJobGorm
		if err := gormDB.First(&job, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "OCR job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch OCR job"})
			return
		}
		if job.Status != models.OCRJobCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "Extraction is not completed", "status": job.Status})
			return
		}

		expense, err := buildExpenseFromExtraction(&job, &req, session.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.CategoryID != 0 {
			var exists bool
			if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM expense_categories WHERE id = $1)", req.CategoryID).Scan(&exists); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
			if !exists {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Expense category does not exist"})
				return
			}
		}

		var categoryID interface{}
		if expense.CategoryID != 0 {
			categoryID = expense.CategoryID
		}
		jobID := int(job.ID)
		err = db.QueryRow(`
			INSERT INTO expenses (amount, currency, expense_date, category_id, vendor, receipt_file, notes, approved, ocr_job_id, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9, $10, $10) RETURNING id`,
			expense.Amount, expense.Currency, expense.ExpenseDate, categoryID, expense.Vendor,
			expense.ReceiptFile, expense.Notes, jobID, session.UserID, time.Now()).Scan(&expense.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense", "details": err.Error()})
			return
		}
		expense.OCRJobID = &jobID
		expense.CreatedBy = session.UserID

		c.JSON(http.StatusCreated, models.SuccessResponse{
			Success: true,
			Message: "Expense created from extraction",
			Data:    expense,
		})

		logActivity(db, session, userName, "OCR", "Confirm Extraction",
			fmt.Sprintf("Expense %d created from OCR job %d", expense.ID, job.ID),
			"expense", expense.ID)
	}
}

// buildExpenseFromExtraction merges user corrections over the extracted
// values. Zero-valued request fields keep what the provider extracted.
func buildExpenseFromExtraction(job *models.OCRJobGorm, req *models.ConfirmExtractionRequest, userID int) (*models.Expense, error) {
	expense := &models.Expense{
		Amount:      job.Amount,
		Currency:    job.Currency,
		Vendor:      job.Merchant,
		ReceiptFile: job.ReceiptFile,
		Notes:       req.Notes,
		CategoryID:  req.CategoryID,
		CreatedBy:   userID,
	}
	if req.Amount != 0 {
		expense.Amount = req.Amount
	}
	if req.Currency != "" {
		expense.Currency = req.Currency
	}
	if req.Merchant != "" {
		expense.Vendor = req.Merchant
	}

	dateStr := job.ExpenseDate
	if req.ExpenseDate != "" {
		dateStr = req.ExpenseDate
	}
	if dateStr == "" {
		return nil, errors.New("expense_date is required when the extraction has no date")
	}
	expenseDate, err := time.Parse(quotationDateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid expense_date %q, expected YYYY-MM-DD", dateStr)
	}
	expense.ExpenseDate = expenseDate

	if expense.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if expense.Currency == "" {
		expense.Currency = "USD"
	}
	return expense, nil
}
