package handlers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"onquota/models"
	"onquota/services"

	"gorm.io/gorm"
)

// Poller defaults. Tests inject shorter values.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// OCRJobManager owns the background pollers that track receipt extraction
// jobs at the external OCR provider. One goroutine per running job; each
// poller is individually cancellable and all of them drain on shutdown.
type OCRJobManager struct {
	db       *gorm.DB
	provider services.OCRProvider

	pollInterval time.Duration
	maxAttempts  int

	pollerCancel map[uint]context.CancelFunc
	pollerMutex  sync.Mutex
	pollerWG     sync.WaitGroup

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	shutdownOnce   sync.Once
	isShuttingDown bool
}

// NewOCRJobManager creates a job manager with production polling settings.
func NewOCRJobManager(db *gorm.DB, provider services.OCRProvider) *OCRJobManager {
	return NewOCRJobManagerWithSettings(db, provider, DefaultPollInterval, DefaultMaxAttempts)
}

// NewOCRJobManagerWithSettings allows tests to shrink the poll interval and
// attempt cap.
func NewOCRJobManagerWithSettings(db *gorm.DB, provider services.OCRProvider, pollInterval time.Duration, maxAttempts int) *OCRJobManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &OCRJobManager{
		db:             db,
		provider:       provider,
		pollInterval:   pollInterval,
		maxAttempts:    maxAttempts,
		pollerCancel:   make(map[uint]context.CancelFunc),
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
}

// ProviderConfigured reports whether an OCR provider is wired in. Without one
// the manager cannot accept new jobs.
func (m *OCRJobManager) ProviderConfigured() bool {
	return m.provider != nil
}

// SubmitReceipt forwards a stored receipt to the provider.
func (m *OCRJobManager) SubmitReceipt(ctx context.Context, filePath string) (string, error) {
	if m.provider == nil {
		return "", fmt.Errorf("no OCR provider configured")
	}
	return m.provider.SubmitReceipt(ctx, filePath)
}

// StartPolling launches the poller goroutine for a job. Starting a job that
// already has a live poller is a no-op, so retry storms never double-poll.
func (m *OCRJobManager) StartPolling(jobID uint) error {
	m.pollerMutex.Lock()
	defer m.pollerMutex.Unlock()

	if m.provider == nil {
		return fmt.Errorf("no OCR provider configured")
	}
	if m.isShuttingDown {
		return fmt.Errorf("job manager is shutting down")
	}
	if _, running := m.pollerCancel[jobID]; running {
		return nil
	}

	ctx, cancel := context.WithCancel(m.shutdownCtx)
	m.pollerCancel[jobID] = cancel
	m.pollerWG.Add(1)

	go func() {
		defer m.pollerWG.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("OCR poller for job %d panicked: %v", jobID, r)
			}
			m.deregister(jobID)
		}()
		m.pollLoop(ctx, jobID)
	}()

	return nil
}

// StopPolling cancels the poller for a job. Safe to call for jobs that are
// not running; repeat calls are no-ops.
func (m *OCRJobManager) StopPolling(jobID uint) {
	m.pollerMutex.Lock()
	defer m.pollerMutex.Unlock()
	if cancel, running := m.pollerCancel[jobID]; running {
		cancel()
		delete(m.pollerCancel, jobID)
	}
}

// IsPolling reports whether a job currently has a live poller.
func (m *OCRJobManager) IsPolling(jobID uint) bool {
	m.pollerMutex.Lock()
	defer m.pollerMutex.Unlock()
	_, running := m.pollerCancel[jobID]
	return running
}

// RunningPollers returns the number of live pollers.
func (m *OCRJobManager) RunningPollers() int {
	m.pollerMutex.Lock()
	defer m.pollerMutex.Unlock()
	return len(m.pollerCancel)
}

func (m *OCRJobManager) deregister(jobID uint) {
	m.pollerMutex.Lock()
	defer m.pollerMutex.Unlock()
	delete(m.pollerCancel, jobID)
}

// pollLoop asks the provider for the job result every poll interval until the
// job reaches a terminal state, the attempt cap is hit, or the context is
// cancelled. The attempt counter is persisted so it survives restarts.
func (m *OCRJobManager) pollLoop(ctx context.Context, jobID uint) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("OCR poller for job %d stopped: %v", jobID, ctx.Err())
			return
		case <-ticker.C:
			done, err := m.pollOnce(ctx, jobID)
			if err != nil {
				log.Printf("OCR poll for job %d failed: %v", jobID, err)
			}
			if done {
				return
			}
		}
	}
}

// ocrActiveStatuses are the statuses a poller is allowed to write over. Rows
// that went terminal concurrently (user cancel, another writer) stay put.
var ocrActiveStatuses = []string{models.OCRJobPending, models.OCRJobProcessing}

// updateActiveJob applies updates only while the row is still non-terminal.
func (m *OCRJobManager) updateActiveJob(ctx context.Context, jobID uint, updates map[string]interface{}) *gorm.DB {
	return m.db.WithContext(ctx).Model(&models.OCRJobGorm{}).
		Where("id = ? AND status IN ?", jobID, ocrActiveStatuses).
		Updates(updates)
}

// pollOnce performs one provider round trip and persists the outcome.
// It returns done=true when polling should stop.
func (m *OCRJobManager) pollOnce(ctx context.Context, jobID uint) (bool, error) {
	var job models.OCRJobGorm
	if err := m.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		// Job deleted out from under the poller; nothing left to track.
		return true, fmt.Errorf("failed to load job: %w", err)
	}
	if job.Terminal() {
		return true, nil
	}

	job.Attempts++
	if job.Attempts > m.maxAttempts {
		// Leave the status alone; the provider may still finish, but this
		// poller gives up and records why.
		job.Attempts = m.maxAttempts
		res := m.updateActiveJob(ctx, jobID, map[string]interface{}{
			"attempts":      job.Attempts,
			"error_message": fmt.Sprintf("polling stopped after %d attempts without a terminal result", m.maxAttempts),
		})
		if res.Error != nil {
			return true, fmt.Errorf("failed to record attempt cap: %w", res.Error)
		}
		log.Printf("OCR poller for job %d reached the attempt cap", jobID)
		return true, nil
	}

	result, err := m.provider.FetchResult(ctx, job.ProviderJobID)
	if err != nil {
		// Provider hiccups burn an attempt but do not fail the job.
		res := m.updateActiveJob(ctx, jobID, map[string]interface{}{"attempts": job.Attempts})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			return true, nil
		}
		return false, err
	}

	updates := map[string]interface{}{"attempts": job.Attempts}
	switch result.Status {
	case models.OCRJobCompleted:
		updates["status"] = models.OCRJobCompleted
		updates["merchant"] = result.Merchant
		updates["amount"] = result.Amount
		updates["currency"] = result.Currency
		updates["expense_date"] = result.Date
		updates["category"] = result.Category
		updates["confidence"] = result.Confidence
		updates["line_items"] = result.LineItems
		updates["error_message"] = ""
	case models.OCRJobFailed:
		message := result.Error
		if message == "" {
			message = "provider reported extraction failure"
		}
		updates["status"] = models.OCRJobFailed
		updates["error_message"] = message
	case models.OCRJobProcessing:
		updates["status"] = models.OCRJobProcessing
	}

	res := m.updateActiveJob(ctx, jobID, updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to persist job state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// The job went terminal while this poll was in flight; the result
		// loses and the row keeps its terminal state.
		return true, nil
	}

	if result.Status == models.OCRJobCompleted || result.Status == models.OCRJobFailed {
		log.Printf("OCR job %d finished with status %s after %d attempts", jobID, result.Status, job.Attempts)
		if result.Status == models.OCRJobCompleted {
			job.Status = models.OCRJobCompleted
			m.notifyExtractionReady(&job)
		}
		return true, nil
	}
	return false, nil
}

func (m *OCRJobManager) notifyExtractionReady(job *models.OCRJobGorm) {
	sqlDB, err := m.db.DB()
	if err != nil {
		log.Printf("Failed to get sql.DB for notification: %v", err)
		return
	}
	sendUserNotification(sqlDB, job.CreatedBy,
		fmt.Sprintf("Receipt extraction for %s is ready for review", job.ReceiptFile),
		fmt.Sprintf("/expenses/ocr/%d", job.ID))
}

// ResumePolling restarts pollers for jobs that were mid-flight when the
// process last stopped. Called once at startup.
func (m *OCRJobManager) ResumePolling() {
	var jobs []models.OCRJobGorm
	err := m.db.Where("status IN ?", []string{models.OCRJobPending, models.OCRJobProcessing}).
		Where("attempts < ?", m.maxAttempts).Find(&jobs).Error
	if err != nil {
		log.Printf("Failed to load resumable OCR jobs: %v", err)
		return
	}
	for i := range jobs {
		if err := m.StartPolling(jobs[i].ID); err != nil {
			log.Printf("Failed to resume OCR job %d: %v", jobs[i].ID, err)
		}
	}
	if len(jobs) > 0 {
		log.Printf("Resumed polling for %d OCR jobs", len(jobs))
	}
}

// GracefulShutdown cancels every poller and waits up to timeout for the
// goroutines to drain.
func (m *OCRJobManager) GracefulShutdown(timeout time.Duration) error {
	var err error
	m.shutdownOnce.Do(func() {
		m.pollerMutex.Lock()
		m.isShuttingDown = true
		count := len(m.pollerCancel)
		m.pollerMutex.Unlock()

		log.Printf("Shutting down OCR job manager, %d pollers running", count)
		m.shutdownCancel()

		done := make(chan struct{})
		go func() {
			m.pollerWG.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All OCR pollers stopped")
		case <-time.After(timeout):
			err = fmt.Errorf("timed out waiting for OCR pollers to stop")
		}
	})
	return err
}
