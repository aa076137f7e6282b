// Package llm provides the vision oracle client.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash-preview-09-2025"
)

// Client talks to an OpenRouter-compatible chat completions API.
// Each Invoke performs exactly one HTTP attempt; the retry budget
// belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *observability.Logger
}

// Config holds oracle client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new oracle client.
func NewClient(cfg Config, logger *observability.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("oracle API key is required", nil)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	if logger == nil {
		logger = observability.Nop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger.WithOperation("oracle"),
	}, nil
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat requests structured model output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request represents the API request structure
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response represents the API response structure
type Response struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []Choice     `json:"choices"`
	Usage   domain.Usage `json:"usage"`
}

// Choice represents a single completion choice
type Choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Invoke performs a single oracle call with the given request. All
// HTTP, network and envelope failures come back as transport errors.
func (c *Client) Invoke(ctx context.Context, req domain.OracleRequest) (*domain.OracleResponse, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, domain.TransportError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, domain.TransportError("failed to build request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical-ai/drawing-engine")
	httpReq.Header.Set("X-Title", "Drawing Engine")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.TransportError("failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.TransportError(
			fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(respBody, 512)), nil)
	}

	var envelope Response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, domain.TransportError("failed to parse API envelope", err)
	}

	if len(envelope.Choices) == 0 {
		return nil, domain.TransportError("API envelope has no choices", nil)
	}

	content := envelope.Choices[0].Message.Content
	if content == "" {
		return nil, domain.TransportError("API returned an empty completion", nil)
	}

	latency := time.Since(start)

	c.logger.Debug().
		Str("stage", req.Stage).
		Int("pages", len(req.Pages)).
		Float64("temperature", req.Temperature).
		Int("completion_tokens", envelope.Usage.CompletionTokens).
		Dur("latency", latency).
		Msg("oracle call completed")

	return &domain.OracleResponse{
		RawText: content,
		Model:   envelope.Model,
		Usage:   envelope.Usage,
		Latency: latency,
	}, nil
}

// buildRequest assembles the chat request: a system message, then one
// user message carrying the prompt and every page raster.
func (c *Client) buildRequest(req domain.OracleRequest) *Request {
	parts := make([]ContentPart, 0, len(req.Pages)+1)
	parts = append(parts, ContentPart{Type: "text", Text: req.Prompt})

	for _, page := range req.Pages {
		parts = append(parts, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(page.PNG),
			},
		})
	}

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: []ContentPart{{Type: "text", Text: req.System}},
		})
	}
	messages = append(messages, Message{Role: "user", Content: parts})

	return &Request{
		Model:          c.model,
		Messages:       messages,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
}

// classifyTransport maps low-level HTTP client failures onto the
// domain error taxonomy. Only the caller's own cancellation or
// deadline passes through; the per-attempt client timeout also
// surfaces as context.DeadlineExceeded but belongs to the retry
// budget, so it must stay a transport error.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.TransportError("request timed out", err)
	}

	return domain.TransportError("failed to send request", err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ domain.Oracle = (*Client)(nil)
