// @title           OnQuota API
// @version         1.0
// @description     OnQuota Backend API - sales quoting, pipeline and expense tracking endpoints.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "onquota/docs"
	"onquota/handlers"
	"onquota/services"
	"onquota/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:9000",
	}
	if origin := os.Getenv("CORS_ALLOWED_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-XSRF-TOKEN",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
		"X-API-Key", "Accept-Language", "DNT", "Connection",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
		}
	}()
}

// expireQuotations flags pending quotations past their validity window.
// The status stays pending; only the expired flag flips.
func expireQuotations(db *sql.DB) error {
	result, err := db.Exec(`
		UPDATE quotations
		SET expired = true, updated_at = NOW()
		WHERE status = 'pending' AND expired = false AND valid_until < NOW()`)
	if err != nil {
		return fmt.Errorf("failed to flag expired quotations: %w", err)
	}
	if count, err := result.RowsAffected(); err == nil && count > 0 {
		log.Printf("Flagged %d quotations as expired", count)
	}
	return nil
}

// notifyOverdueControls sends a daily notification to assignees whose
// controls have slipped past the promise date without delivery.
func notifyOverdueControls(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT id, folio, assignee_id
		FROM sales_controls
		WHERE promise_date < NOW() AND status IN ('pending', 'in_production')`)
	if err != nil {
		return fmt.Errorf("failed to fetch overdue controls: %w", err)
	}
	defer rows.Close()

	type overdue struct {
		id         int
		folio      string
		assigneeID int
	}
	var items []overdue
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.id, &o.folio, &o.assigneeID); err != nil {
			return err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, o := range items {
		handlers.NotifyOverdueControl(db, o.id, o.folio, o.assigneeID)
	}
	if len(items) > 0 {
		log.Printf("Sent overdue notifications for %d sales controls", len(items))
	}
	return nil
}

func main() {
	db := storage.InitDB()
	defer db.Close()

	gormDB := storage.InitGormDB()

	emailService := services.NewEmailService(db)
	handlers.SetEmailService(emailService)

	// Push delivery is optional; missing credentials just disable it.
	var pushService *services.PushService
	if credPath := os.Getenv("PUSH_CREDENTIALS_FILE"); credPath != "" {
		var err error
		pushService, err = services.NewPushService(credPath, db)
		if err != nil {
			log.Printf("Warning: Failed to initialize push service: %v. Push notifications will be disabled.", err)
			pushService = nil
		} else {
			log.Println("Push service initialized successfully")
		}
	}
	handlers.SetPushService(pushService)

	// OCR provider is optional in development; the job manager refuses new
	// jobs cleanly when it is absent.
	var ocrProvider services.OCRProvider
	if provider, err := services.NewHTTPOCRProvider(); err != nil {
		log.Printf("Warning: OCR provider not configured: %v. Receipt extraction disabled.", err)
	} else {
		ocrProvider = provider
	}
	ocrManager := handlers.NewOCRJobManager(gormDB, ocrProvider)
	if ocrProvider != nil {
		ocrManager.ResumePolling()
	}

	// Daily maintenance at 06:30.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = c.AddFunc("30 6 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "ExpireQuotations", func(ctx context.Context) error {
			return expireQuotations(db)
		}, cronLogger)

		safeGo(ctx, &wg, "NotifyOverdueControls", func(ctx context.Context) error {
			return notifyOverdueControls(db)
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			cronLogger.Println("Cron timeout reached, jobs cancelled")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}
	c.Start()

	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Authentication
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh", handlers.RefreshTokenHandler(db))
	r.GET("/api/validate-session", handlers.ValidateSessionHandler(db))
	r.GET("/api/devices", handlers.GetActiveDevicesHandler(db))
	r.POST("/api/logout", handlers.LogoutDeviceHandler(db))

	// Users
	r.POST("/api/users", handlers.CreateUser(db))
	r.GET("/api/users", handlers.GetUsers(db))
	r.GET("/api/users/me", handlers.GetProfile(db))
	r.POST("/api/users/:id/suspend", handlers.SuspendUser(db))

	// Accounts
	r.POST("/api/accounts", handlers.CreateAccount(db))
	r.GET("/api/accounts", handlers.GetAccounts(db))
	r.GET("/api/accounts/:id", handlers.GetAccount(db))
	r.PUT("/api/accounts/:id", handlers.UpdateAccount(db))
	r.DELETE("/api/accounts/:id", handlers.DeleteAccount(db))

	// Opportunities
	r.POST("/api/opportunities", handlers.CreateOpportunity(db))
	r.GET("/api/opportunities", handlers.GetOpportunities(db))
	r.PUT("/api/opportunities/:id", handlers.UpdateOpportunity(db))
	r.PATCH("/api/opportunities/:id/stage", handlers.UpdateOpportunityStage(db))
	r.DELETE("/api/opportunities/:id", handlers.DeleteOpportunity(db))

	// Quotations
	r.POST("/api/sales/quotations", handlers.CreateQuotation(db))
	r.GET("/api/sales/quotations", handlers.GetQuotations(db))
	r.GET("/api/sales/quotations/:id", handlers.GetQuotation(db))
	r.DELETE("/api/sales/quotations/:id", handlers.DeleteQuotation(db))
	r.POST("/api/sales/quotations/:id/win", handlers.WinQuotation(db))
	r.POST("/api/sales/quotations/:id/lose", handlers.LoseQuotation(db))
	r.GET("/api/sales/quotations/:id/pdf", handlers.GenerateQuotationPDF(db))

	// Sales controls
	r.GET("/api/sales/controls", handlers.GetSalesControls(db))
	r.GET("/api/sales/controls/:id", handlers.GetSalesControl(db))
	r.POST("/api/sales/controls/:id/start-production", handlers.StartProduction(db))
	r.POST("/api/sales/controls/:id/mark-delivered", handlers.MarkDelivered(db))
	r.POST("/api/sales/controls/:id/mark-invoiced", handlers.MarkInvoiced(db))
	r.POST("/api/sales/controls/:id/mark-paid", handlers.MarkPaid(db))
	r.POST("/api/sales/controls/:id/cancel", handlers.CancelSalesControl(db))
	r.PATCH("/api/sales/controls/:id/lead-time", handlers.UpdateLeadTime(db))

	// Product lines
	r.POST("/api/product-lines", handlers.CreateProductLine(db))
	r.GET("/api/product-lines", handlers.GetProductLines(db))
	r.PUT("/api/product-lines/:id", handlers.UpdateProductLine(db))
	r.DELETE("/api/product-lines/:id", handlers.DeleteProductLine(db))

	// Expenses
	r.POST("/api/expenses", handlers.CreateExpense(db))
	r.GET("/api/expenses", handlers.GetExpenses(db))
	r.POST("/api/expenses/:id/approve", handlers.ApproveExpense(db))
	r.DELETE("/api/expenses/:id", handlers.DeleteExpense(db))
	r.POST("/api/expense-categories", handlers.CreateExpenseCategory(db))
	r.GET("/api/expense-categories", handlers.GetExpenseCategories(db))
	r.POST("/api/expense-import", handlers.ImportExpenses(db))

	// OCR receipt extraction
	r.POST("/api/ocr/receipts", handlers.UploadReceipt(db, gormDB, ocrManager))
	r.GET("/api/ocr/jobs", handlers.GetOCRJobs(db, gormDB))
	r.GET("/api/ocr/jobs/:id", handlers.GetOCRJob(db, gormDB))
	r.POST("/api/ocr/jobs/:id/cancel", handlers.CancelOCRJob(db, gormDB, ocrManager))
	r.POST("/api/ocr/jobs/:id/retry", handlers.RetryOCRJob(db, gormDB, ocrManager))
	r.POST("/api/ocr/jobs/:id/confirm", handlers.ConfirmExtraction(db, gormDB))

	// Vehicles
	r.POST("/api/vehicles", handlers.CreateVehicle(db))
	r.GET("/api/vehicles", handlers.GetVehicles(db))
	r.PUT("/api/vehicles/:id", handlers.UpdateVehicle(db))
	r.DELETE("/api/vehicles/:id", handlers.DeleteVehicle(db))

	// Currencies
	r.GET("/api/currencies", handlers.GetCurrencies(db))
	r.POST("/api/currencies", handlers.CreateCurrency(db))

	// Dashboard and exports
	r.GET("/api/dashboard/summary", handlers.GetDashboard(db))
	r.GET("/api/exports/sales-controls", handlers.ExportSalesControls(db))
	r.GET("/api/exports/quotations", handlers.ExportQuotations(db))
	r.GET("/api/exports/expenses", handlers.ExportExpenses(db))

	// Notifications
	r.GET("/api/notifications", handlers.GetNotifications(db))
	r.PUT("/api/notifications/:id", handlers.MarkNotificationRead(db))
	r.PUT("/api/notifications", handlers.MarkAllNotificationsRead(db))
	r.POST("/api/device-tokens", handlers.RegisterDeviceToken(db))

	// Files and activity
	r.GET("/api/files/receipts/:name", handlers.ServeReceiptFile(db))
	r.GET("/api/activity-logs", handlers.GetActivityLogsHandler(db))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.Stop()

	if err := ocrManager.GracefulShutdown(20 * time.Second); err != nil {
		log.Printf("Warning: OCR job manager shutdown error: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
