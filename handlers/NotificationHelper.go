package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"onquota/models"
	"onquota/services"
)

// Global push service reference, set once at startup.
var (
	pushService  *services.PushService
	emailService *services.EmailService
)

// SetEmailService wires the SMTP sender used for lifecycle emails.
func SetEmailService(es *services.EmailService) {
	emailService = es
}

// SetPushService wires the push service used for device notifications.
// A nil service disables push delivery.
func SetPushService(p *services.PushService) {
	pushService = p
}

// sendUserNotification creates an in-app notification for a user and, when a
// push service is configured, forwards it to the user's registered devices.
// Delivery failures are logged and never interrupt the request flow.
func sendUserNotification(db *sql.DB, userID int, message, action string) {
	notif := models.Notification{
		UserID:    userID,
		Message:   message,
		Status:    "unread",
		Action:    action,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := db.Exec(`
		INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, notif.UserID, notif.Message, notif.Status, notif.Action, notif.CreatedAt, notif.UpdatedAt)

	if err != nil {
		log.Printf("Failed to insert notification: %v", err)
		return
	}

	if pushService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pushService.SendToUser(ctx, userID, "OnQuota", message, map[string]string{"action": action})
	}
}

// overdueRecipient carries the assignee and account details for an overdue
// control email.
type overdueRecipient struct {
	Email       string
	Name        string
	AccountName string
}

func loadOverdueRecipient(db *sql.DB, controlID int) (*overdueRecipient, error) {
	var r overdueRecipient
	var firstName, lastName string
	err := db.QueryRow(`
		SELECT u.email, u.first_name, u.last_name, a.name
		FROM sales_controls sc
		JOIN users u ON u.id = sc.assignee_id
		JOIN accounts a ON a.id = sc.account_id
		WHERE sc.id = $1`, controlID).Scan(&r.Email, &firstName, &lastName, &r.AccountName)
	if err != nil {
		return nil, err
	}
	r.Name = strings.TrimSpace(firstName + " " + lastName)
	return &r, nil
}

// NotifyOverdueControl alerts the assignee of a control that slipped past its
// promise date, both in-app and by email when an address is on file.
func NotifyOverdueControl(db *sql.DB, controlID int, folio string, assigneeID int) {
	message := "Sales control " + folio + " is past its promise date"
	sendUserNotification(db, assigneeID, message, fmt.Sprintf(salesControlActionTemplate, controlID))

	if emailService == nil {
		return
	}

	recipient, err := loadOverdueRecipient(db, controlID)
	if err != nil {
		log.Printf("Failed to fetch assignee details for overdue control %s: %v", folio, err)
		return
	}

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	if err := emailService.SendControlOverdueEmail(recipient.Email, map[string]string{
		"user_name":    recipient.Name,
		"folio":        folio,
		"account_name": recipient.AccountName,
		"action_url":   fmt.Sprintf("%s/sales/controls/%d", baseURL, controlID),
	}); err != nil {
		log.Printf("Failed to send overdue email for control %s: %v", folio, err)
	}
}

// getAccountName retrieves an account name, falling back to a generic label.
func getAccountName(db *sql.DB, accountID int) string {
	var name string
	err := db.QueryRow("SELECT name FROM accounts WHERE id = $1", accountID).Scan(&name)
	if err != nil {
		log.Printf("Failed to fetch account name: %v", err)
		return "Account"
	}
	return name
}

// logActivity records a lifecycle event; failures are logged only.
func logActivity(db *sql.DB, session models.Session, userName, eventContext, eventName, description, entityType string, entityID int) {
	entry := models.ActivityLog{
		EventContext: eventContext,
		EventName:    eventName,
		Description:  description,
		UserName:     userName,
		HostName:     session.HostName,
		IPAddress:    session.IPAddress,
		EntityType:   entityType,
		EntityID:     entityID,
		CreatedAt:    time.Now(),
	}

	if err := SaveActivityLog(db, entry); err != nil {
		log.Printf("Failed to save activity log: %v", err)
	}
}
