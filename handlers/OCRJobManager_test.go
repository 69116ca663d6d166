package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"onquota/models"
	"onquota/services"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeOCRProvider scripts FetchResult responses for poller tests. onFetch,
// when set, runs inside FetchResult so a test can interleave work with a
// poll that is already in flight.
type fakeOCRProvider struct {
	mu      sync.Mutex
	results []fetchOutcome
	calls   int
	onFetch func()
}

type fetchOutcome struct {
	result *services.OCRResult
	err    error
}

func (f *fakeOCRProvider) SubmitReceipt(ctx context.Context, filePath string) (string, error) {
	return "prov-123", nil
}

func (f *fakeOCRProvider) FetchResult(ctx context.Context, providerJobID string) (*services.OCRResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	if len(f.results) == 0 {
		return &services.OCRResult{Status: models.OCRJobProcessing}, nil
	}
	out := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return out.result, out.err
}

func (f *fakeOCRProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestJobDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.OCRJobGorm{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestJob(t *testing.T, db *gorm.DB) *models.OCRJobGorm {
	t.Helper()
	job := &models.OCRJobGorm{
		Status:        models.OCRJobPending,
		ReceiptFile:   "uploads/receipts/test.jpg",
		ProviderJobID: "prov-123",
		CreatedBy:     1,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func waitForPollerStop(t *testing.T, m *OCRJobManager, jobID uint) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !m.IsPolling(jobID) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("poller for job %d did not stop in time", jobID)
}

func TestOCRJobManager_CompletesJob(t *testing.T) {
	db := newTestJobDB(t)
	provider := &fakeOCRProvider{results: []fetchOutcome{
		{result: &services.OCRResult{Status: models.OCRJobProcessing}},
		{result: &services.OCRResult{Status: models.OCRJobProcessing}},
		{result: &services.OCRResult{
			Status:     models.OCRJobCompleted,
			Merchant:   "Office Depot",
			Amount:     120.50,
			Currency:   "USD",
			Date:       "2024-03-10",
			Category:   "Office Supplies",
			Confidence: 0.93,
		}},
	}}
	m := NewOCRJobManagerWithSettings(db, provider, 10*time.Millisecond, 60)
	job := createTestJob(t, db)

	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	waitForPollerStop(t, m, job.ID)

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != models.OCRJobCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Merchant != "Office Depot" {
		t.Errorf("merchant = %q", got.Merchant)
	}
	if got.Amount != 120.50 {
		t.Errorf("amount = %v", got.Amount)
	}
	if got.ExpenseDate != "2024-03-10" {
		t.Errorf("expense date = %q", got.ExpenseDate)
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got.Attempts)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message should be empty, got %q", got.ErrorMessage)
	}
}

func TestOCRJobManager_ProviderFailure(t *testing.T) {
	db := newTestJobDB(t)
	provider := &fakeOCRProvider{results: []fetchOutcome{
		{result: &services.OCRResult{Status: models.OCRJobFailed, Error: "image unreadable"}},
	}}
	m := NewOCRJobManagerWithSettings(db, provider, 10*time.Millisecond, 60)
	job := createTestJob(t, db)

	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	waitForPollerStop(t, m, job.ID)

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != models.OCRJobFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "image unreadable" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestOCRJobManager_AttemptCap(t *testing.T) {
	db := newTestJobDB(t)
	// Provider never finishes; the scripted default is processing forever.
	provider := &fakeOCRProvider{}
	m := NewOCRJobManagerWithSettings(db, provider, 10*time.Millisecond, 3)
	job := createTestJob(t, db)

	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	waitForPollerStop(t, m, job.ID)

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != models.OCRJobProcessing {
		t.Errorf("giving up must not flip the status, got %q", got.Status)
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want the cap 3", got.Attempts)
	}
	if got.ErrorMessage == "" {
		t.Error("attempt cap should be recorded in the error message")
	}
}

func TestOCRJobManager_FetchErrorsBurnAttempts(t *testing.T) {
	db := newTestJobDB(t)
	provider := &fakeOCRProvider{results: []fetchOutcome{
		{err: fmt.Errorf("connection refused")},
	}}
	m := NewOCRJobManagerWithSettings(db, provider, 10*time.Millisecond, 2)
	job := createTestJob(t, db)

	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	waitForPollerStop(t, m, job.ID)

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status == models.OCRJobFailed {
		t.Error("transient fetch errors must not fail the job")
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want the cap 2", got.Attempts)
	}
}

func TestOCRJobManager_CancellationSurvivesInFlightPoll(t *testing.T) {
	db := newTestJobDB(t)
	job := createTestJob(t, db)

	// The user cancels while the poller is waiting on the provider. The
	// poll result that comes back afterwards must not revive the job.
	provider := &fakeOCRProvider{}
	provider.onFetch = func() {
		err := db.Model(&models.OCRJobGorm{}).
			Where("id = ? AND status IN ?", job.ID, ocrActiveStatuses).
			Updates(map[string]interface{}{
				"status":        models.OCRJobFailed,
				"error_message": "cancelled by user",
			}).Error
		if err != nil {
			t.Errorf("cancel update: %v", err)
		}
	}
	m := NewOCRJobManagerWithSettings(db, provider, time.Hour, 60)

	done, err := m.pollOnce(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if !done {
		t.Error("pollOnce should stop once the job is terminal")
	}

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != models.OCRJobFailed {
		t.Errorf("status = %q, the cancellation must stand", got.Status)
	}
	if got.ErrorMessage != "cancelled by user" {
		t.Errorf("error message = %q, want the cancellation reason", got.ErrorMessage)
	}
}

func TestOCRJobManager_CompletedResultBlocksLateCancel(t *testing.T) {
	db := newTestJobDB(t)
	job := createTestJob(t, db)
	if err := db.Model(job).Updates(map[string]interface{}{
		"status":   models.OCRJobCompleted,
		"merchant": "Office Depot",
	}).Error; err != nil {
		t.Fatalf("seed completed job: %v", err)
	}

	// A cancel that loses the race takes the same guarded write; it must
	// match zero rows against a job that already completed.
	res := db.Model(&models.OCRJobGorm{}).
		Where("id = ? AND status IN ?", job.ID, ocrActiveStatuses).
		Updates(map[string]interface{}{
			"status":        models.OCRJobFailed,
			"error_message": "cancelled by user",
		})
	if res.Error != nil {
		t.Fatalf("guarded update: %v", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Errorf("rows affected = %d, want 0", res.RowsAffected)
	}

	var got models.OCRJobGorm
	if err := db.First(&got, job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.Status != models.OCRJobCompleted {
		t.Errorf("status = %q, the completed result must stand", got.Status)
	}
}

func TestOCRJobManager_StartPollingDedup(t *testing.T) {
	db := newTestJobDB(t)
	provider := &fakeOCRProvider{}
	m := NewOCRJobManagerWithSettings(db, provider, time.Hour, 60)
	job := createTestJob(t, db)

	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("first StartPolling: %v", err)
	}
	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("second StartPolling should be a no-op, got %v", err)
	}
	if n := m.RunningPollers(); n != 1 {
		t.Errorf("running pollers = %d, want 1", n)
	}

	m.StopPolling(job.ID)
	waitForPollerStop(t, m, job.ID)
}

func TestOCRJobManager_StopPollingIdempotent(t *testing.T) {
	db := newTestJobDB(t)
	m := NewOCRJobManagerWithSettings(db, &fakeOCRProvider{}, time.Hour, 60)

	// Stopping a job that never polled must not panic or block.
	m.StopPolling(42)
	m.StopPolling(42)

	job := createTestJob(t, db)
	if err := m.StartPolling(job.ID); err != nil {
		t.Fatalf("StartPolling: %v", err)
	}
	m.StopPolling(job.ID)
	m.StopPolling(job.ID)
	waitForPollerStop(t, m, job.ID)
	if m.IsPolling(job.ID) {
		t.Error("job should no longer be polling")
	}
}

func TestOCRJobManager_GracefulShutdown(t *testing.T) {
	db := newTestJobDB(t)
	m := NewOCRJobManagerWithSettings(db, &fakeOCRProvider{}, time.Hour, 60)

	jobA := createTestJob(t, db)
	jobB := createTestJob(t, db)
	if err := m.StartPolling(jobA.ID); err != nil {
		t.Fatalf("StartPolling A: %v", err)
	}
	if err := m.StartPolling(jobB.ID); err != nil {
		t.Fatalf("StartPolling B: %v", err)
	}

	if err := m.GracefulShutdown(2 * time.Second); err != nil {
		t.Fatalf("GracefulShutdown: %v", err)
	}
	if n := m.RunningPollers(); n != 0 {
		t.Errorf("running pollers after shutdown = %d, want 0", n)
	}
	if err := m.StartPolling(jobA.ID); err == nil {
		t.Error("StartPolling after shutdown should be rejected")
	}
}

func TestOCRJobManager_NoProvider(t *testing.T) {
	db := newTestJobDB(t)
	m := NewOCRJobManagerWithSettings(db, nil, time.Hour, 60)

	if m.ProviderConfigured() {
		t.Error("ProviderConfigured should be false")
	}
	if err := m.StartPolling(1); err == nil {
		t.Error("StartPolling without a provider should fail")
	}
	if _, err := m.SubmitReceipt(context.Background(), "x.jpg"); err == nil {
		t.Error("SubmitReceipt without a provider should fail")
	}
}
