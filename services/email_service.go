package services

import (
	"database/sql"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	result := text.String()
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}

// EmailService handles transactional email for lifecycle events.
type EmailService struct {
	db *sql.DB
}

// NewEmailService creates a new email service instance
func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

// Built-in templates; variables use {{name}} placeholders.
const (
	templateQuotationWon = `<p>Hi {{user_name}},</p>
<p>Quotation {{folio}} for {{account_name}} was marked won.</p>
<p>A sales control ({{sales_control_folio}}) has been created with PO {{po_number}}.</p>
<p><a href="{{action_url}}">Open sales control</a></p>`

	templateControlOverdue = `<p>Hi {{user_name}},</p>
<p>Sales control {{folio}} for {{account_name}} is past its promise date and has not been delivered.</p>
<p><a href="{{action_url}}">Review sales control</a></p>`
)

// SendQuotationWonEmail notifies the assignee that a quotation was won.
func (es *EmailService) SendQuotationWonEmail(to string, vars map[string]string) error {
	subject := fmt.Sprintf("Quotation %s won", vars["folio"])
	return es.send(to, subject, renderTemplate(templateQuotationWon, vars))
}

// SendControlOverdueEmail notifies the assignee about an overdue sales control.
func (es *EmailService) SendControlOverdueEmail(to string, vars map[string]string) error {
	subject := fmt.Sprintf("Sales control %s is overdue", vars["folio"])
	return es.send(to, subject, renderTemplate(templateControlOverdue, vars))
}

func renderTemplate(templateStr string, vars map[string]string) string {
	result := templateStr
	for key, value := range vars {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// send delivers an email over SMTP; the HTML body is converted to plain text.
func (es *EmailService) send(to, subject, htmlBody string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}
	if host == "" || user == "" {
		return fmt.Errorf("SMTP is not configured")
	}
	if port == "" {
		port = "587"
	}

	auth := smtp.PlainAuth("", user, password, host)

	plainBody := convertHTMLToText(htmlBody)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(plainBody)

	if err := smtp.SendMail(host+":"+port, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
