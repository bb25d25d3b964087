package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
)

const (
	defaultBaseURL = "https://api.blackbox.ai"
	DefaultModel   = "blackboxai/google/veo-3-fast"
)

// ErrMissingAPIKey indicates a request was made without credentials.
var ErrMissingAPIKey = errors.New("video: api key is required")

// Options configures the chat-completions video client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client calls a chat-completions style endpoint that answers with a video link.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// Request is one generation attempt against a single model.
type Request struct {
	APIKey string
	Model  string
	Prompt string
	// Images are passed through verbatim as image_url parts.
	Images []string
}

// Result is a successful generation.
type Result struct {
	VideoURL string
	Model    string
	Message  string
	Raw      json.RawMessage
}

// Generator produces a video for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code       int
	StatusText string
	Body       string
}

func (e *StatusError) Error() string {
	return "API request failed: " + e.StatusText
}

func (e *StatusError) Is(target error) bool {
	return target == domain.ErrProviderFailure
}

// NoResultError is returned when a 2xx payload carries no recognizable video link.
type NoResultError struct {
	Raw string
}

func (e *NoResultError) Error() string {
	return "No video URL found in response"
}

func (e *NoResultError) Is(target error) bool {
	return target == domain.ErrProviderFailure
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Generate performs exactly one provider call. It does not retry.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	parts := make([]contentPart, 0, len(req.Images)+1)
	parts = append(parts, contentPart{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
	}
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return nil, fmt.Errorf("video: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("video: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("video: read response: %w", err)
	}
	c.logger.Debug().
		Str("model", model).
		Int("status", resp.StatusCode).
		Int("images", len(req.Images)).
		Dur("latency", time.Since(start)).
		Msg("video provider responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Code:       resp.StatusCode,
			StatusText: statusText(resp),
			Body:       string(raw),
		}
	}

	videoURL, message, err := Extract(raw)
	if err != nil {
		return nil, fmt.Errorf("video: decode response: %w", err)
	}
	if videoURL == "" {
		return nil, &NoResultError{Raw: string(raw)}
	}
	return &Result{
		VideoURL: videoURL,
		Model:    model,
		Message:  message,
		Raw:      json.RawMessage(raw),
	}, nil
}

// statusText returns the reason phrase without the numeric code, e.g. "Bad Gateway".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

var _ Generator = (*Client)(nil)
