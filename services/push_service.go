package services

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// PushService sends Firebase Cloud Messaging pushes to registered devices
// using the HTTP v1 API.
type PushService struct {
	projectID   string
	credentials *jwt.Config
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// ServiceAccountCredentials represents the structure of the service account JSON
type ServiceAccountCredentials struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// NewPushService initializes the push service from a service account JSON file.
func NewPushService(credentialsPath string, db *sql.DB) (*PushService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}

	if _, err := parsePrivateKey(creds.PrivateKey); err != nil {
		return nil, fmt.Errorf("error parsing private key: %v", err)
	}

	privateKeyStr := strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(privateKeyStr),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &PushService{
		projectID:   creds.ProjectID,
		credentials: config,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// parsePrivateKey parses a PEM-encoded private key
func parsePrivateKey(keyData string) (*rsa.PrivateKey, error) {
	keyData = strings.ReplaceAll(keyData, "\\n", "\n")
	keyData = strings.TrimSpace(keyData)

	block, _ := pem.Decode([]byte(keyData))
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %v", err)
		}
		return key, nil
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}

	return rsaKey, nil
}

// SendNotification sends a push notification to a single device token.
func (p *PushService) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("device token cannot be empty")
	}

	oauthToken, err := p.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"webpush": map[string]interface{}{
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", p.projectID)

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshalling push payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+oauthToken.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendToUser pushes a notification to every registered device of a user.
// Delivery failures are logged per token and do not abort the remaining sends.
func (p *PushService) SendToUser(ctx context.Context, userID int, title, body string, data map[string]string) {
	rows, err := p.db.Query(`SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		log.Printf("Failed to fetch device tokens for user %d: %v", userID, err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			log.Printf("Failed to scan device token: %v", err)
			continue
		}
		if err := p.SendNotification(ctx, token, title, body, data); err != nil {
			log.Printf("Push to user %d failed: %v", userID, err)
		}
	}
}
