package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelgen/internal/domain"
)

// ErrJobNotFound is returned by Status for a 404.
var ErrJobNotFound = errors.New("poller: job not found")

// RejectedError is a non-success submission response.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected (%d): %s", e.StatusCode, e.Message)
}

// StatusResponse mirrors the status endpoint body.
type StatusResponse struct {
	JobID       string  `json:"jobId"`
	Status      string  `json:"status"`
	VideoURL    *string `json:"videoUrl"`
	Error       *string `json:"error"`
	Prompt      string  `json:"prompt"`
	PhotosCount int     `json:"photosCount"`
	CreatedAt   int64   `json:"createdAt"`
	CompletedAt *int64  `json:"completedAt"`
}

// GenerateResponse mirrors the synchronous endpoint's success body.
type GenerateResponse struct {
	Success   bool   `json:"success"`
	VideoURL  string `json:"videoUrl"`
	Message   string `json:"message"`
	ModelUsed string `json:"modelUsed"`
}

type submitBody struct {
	Photos []domain.Photo `json:"photos"`
	Prompt string         `json:"prompt"`
}

// Client talks to the submission and status endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient points at a server root such as http://localhost:8080.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Submit returns the job id, or *RejectedError for any non-202 answer.
func (c *Client) Submit(ctx context.Context, photos []domain.Photo, prompt string) (string, error) {
	var out struct {
		JobID string `json:"jobId"`
	}
	code, msg, err := c.post(ctx, "/v1/videos", submitBody{Photos: photos, Prompt: prompt}, &out)
	if err != nil {
		return "", err
	}
	if code != http.StatusAccepted || out.JobID == "" {
		return "", &RejectedError{StatusCode: code, Message: msg}
	}
	return out.JobID, nil
}

// Generate calls the synchronous endpoint and blocks until it answers.
func (c *Client) Generate(ctx context.Context, photos []domain.Photo, prompt string) (*GenerateResponse, error) {
	var out GenerateResponse
	code, msg, err := c.post(ctx, "/v1/videos/generate", submitBody{Photos: photos, Prompt: prompt}, &out)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, &RejectedError{StatusCode: code, Message: msg}
	}
	return &out, nil
}

// Status fetches one snapshot of the job.
func (c *Client) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	endpoint := c.baseURL + "/v1/videos/status?jobId=" + url.QueryEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poller: status endpoint returned %d", resp.StatusCode)
	}
	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("poller: decode status: %w", err)
	}
	return &out, nil
}

// post sends body as JSON and decodes a 2xx answer into out. For other
// answers it returns the server's error message.
func (c *Client) post(ctx context.Context, path string, body, out any) (int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, "", fmt.Errorf("poller: decode response: %w", err)
		}
		return resp.StatusCode, "", nil
	}
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return resp.StatusCode, e.Error, nil
	}
	return resp.StatusCode, strings.TrimSpace(string(raw)), nil
}
