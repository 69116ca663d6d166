package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// OCRResult is the extraction bundle returned by the external OCR provider.
type OCRResult struct {
	Status     string  `json:"status"` // pending, processing, completed, failed
	Merchant   string  `json:"merchant"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Date       string  `json:"date"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	LineItems  string  `json:"line_items"` // provider JSON, stored verbatim
	Error      string  `json:"error,omitempty"`
}

// OCRProvider abstracts the external text-extraction service so the job
// poller can be exercised against a fake in tests.
type OCRProvider interface {
	// SubmitReceipt uploads a stored receipt image and returns the provider's job id.
	SubmitReceipt(ctx context.Context, filePath string) (string, error)
	// FetchResult retrieves the current state of a provider job.
	FetchResult(ctx context.Context, providerJobID string) (*OCRResult, error)
}

// HTTPOCRProvider talks to the OCR provider's REST API.
type HTTPOCRProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPOCRProvider builds a provider client from OCR_PROVIDER_URL and
// OCR_PROVIDER_API_KEY.
func NewHTTPOCRProvider() (*HTTPOCRProvider, error) {
	baseURL := os.Getenv("OCR_PROVIDER_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("OCR_PROVIDER_URL is not set")
	}
	return &HTTPOCRProvider{
		baseURL:    baseURL,
		apiKey:     os.Getenv("OCR_PROVIDER_API_KEY"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *HTTPOCRProvider) SubmitReceipt(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open receipt file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy receipt into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/receipts", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("OCR provider returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if payload.JobID == "" {
		return "", fmt.Errorf("OCR provider returned empty job id")
	}
	return payload.JobID, nil
}

func (p *HTTPOCRProvider) FetchResult(ctx context.Context, providerJobID string) (*OCRResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/jobs/"+providerJobID, nil)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("provider job %s not found", providerJobID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("OCR provider returned %d: %s", resp.StatusCode, string(body))
	}

	var result OCRResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode provider result: %w", err)
	}
	return &result, nil
}
