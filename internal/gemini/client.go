package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// GeminiError represents an error that occurred during Gemini API interaction
type GeminiError struct {
	Op  string // Operation that caused the error
	Err error  // Original error
}

// Error implements the error interface
func (e *GeminiError) Error() string {
	if e.Err == nil {
		return "gemini error: " + e.Op
	}
	return "gemini error: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *GeminiError) Unwrap() error {
	return e.Err
}

// Client represents a client for the Gemini generateContent API
type Client struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Config holds configuration for the Gemini client
type Config struct {
	APIKey     string
	ModelID    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// BaseURL overrides the production endpoint, used in tests.
	BaseURL string
}

// DefaultConfig returns a default configuration for the Gemini client
func DefaultConfig() *Config {
	return &Config{
		ModelID:    "gemini-3-flash-preview",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// NewClient creates a new Gemini client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = "gemini-3-flash-preview"
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		modelID:    modelID,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// request/response shapes for the generateContent endpoint

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateContent sends one prompt (optionally with an inline image part)
// and returns the model's raw text output. Rate-limit (429) and
// unavailable (503) responses are retried with exponential backoff up to
// the retry budget; every other failure propagates immediately.
func (c *Client) generateContent(ctx context.Context, parts []contentPart) (string, error) {
	if c.apiKey == "" {
		return "", &GeminiError{
			Op:  "validate_configuration",
			Err: fmt.Errorf("Gemini API key is not configured. Please set GEMINI_API_KEY environment variable"),
		}
	}

	payload := generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}
	requestData, err := json.Marshal(payload)
	if err != nil {
		return "", &GeminiError{
			Op:  "marshal_request",
			Err: fmt.Errorf("failed to marshal request payload: %w", err),
		}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.modelID, c.apiKey)

	delay := c.retryDelay
	var lastStatus int
	var lastBody []byte
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &GeminiError{Op: "wait_for_retry", Err: ctx.Err()}
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestData))
		if err != nil {
			return "", &GeminiError{
				Op:  "create_request",
				Err: fmt.Errorf("failed to create request: %w", err),
			}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", &GeminiError{
				Op:  "send_request",
				Err: fmt.Errorf("failed to send request: %w", err),
			}
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", &GeminiError{
				Op:  "read_response",
				Err: fmt.Errorf("failed to read response body: %w", err),
			}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			lastStatus = resp.StatusCode
			lastBody = respBody
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", &GeminiError{
				Op:  "check_api_response",
				Err: fmt.Errorf("API error: %s - %s", resp.Status, string(respBody)),
			}
		}

		return extractResponseText(respBody)
	}

	return "", &GeminiError{
		Op:  "exhaust_retries",
		Err: fmt.Errorf("API busy after %d attempts: status %d - %s", c.maxRetries, lastStatus, string(lastBody)),
	}
}

// extractResponseText pulls the first candidate's text from a response
func extractResponseText(respBody []byte) (string, error) {
	var response generateResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", &GeminiError{
			Op:  "parse_response_json",
			Err: fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", &GeminiError{
			Op:  "check_response_candidates",
			Err: fmt.Errorf("no candidates in response"),
		}
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}

var codeFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// cleanJSONString strips markdown code fences the model sometimes wraps
// around its JSON output.
func cleanJSONString(s string) string {
	return strings.TrimSpace(codeFenceRegex.ReplaceAllString(s, ""))
}
