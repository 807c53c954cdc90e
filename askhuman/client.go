// Package askhuman is the agent-side client for the Ask-a-Human API: submit
// questions to anonymous humans, poll for their answers, and wait for
// consensus with backoff.
package askhuman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when neither WithBaseURL nor the
	// ASK_A_HUMAN_BASE_URL environment variable is set.
	DefaultBaseURL = "https://api.ask-a-human.com"

	envBaseURL = "ASK_A_HUMAN_BASE_URL"
	envAgentID = "ASK_A_HUMAN_AGENT_ID"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

// Client is the low-level HTTP client for the agent API. For polling and
// waiting, wrap it in an Orchestrator.
type Client struct {
	baseURL    string
	agentID    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithAgentID sets the agent identifier sent on every request, used by the
// service for quota accounting.
func WithAgentID(agentID string) ClientOption {
	return func(c *Client) { c.agentID = agentID }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a client. Unset options fall back to the
// ASK_A_HUMAN_BASE_URL and ASK_A_HUMAN_AGENT_ID environment variables, then
// to built-in defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = os.Getenv(envBaseURL)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.agentID == "" {
		c.agentID = os.Getenv(envAgentID)
	}
	if c.agentID == "" {
		c.agentID = "default"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return c
}

// SubmitQuestion posts a question for humans to answer.
func (c *Client) SubmitQuestion(ctx context.Context, in SubmitQuestionInput) (Submission, error) {
	var out Submission
	if err := c.do(ctx, http.MethodPost, "/agent/questions", in, &out); err != nil {
		return Submission{}, err
	}
	return out, nil
}

// GetQuestion fetches a question's current status and responses.
func (c *Client) GetQuestion(ctx context.Context, questionID string) (QuestionState, error) {
	if questionID == "" {
		return QuestionState{}, fmt.Errorf("askhuman: question id is required")
	}
	var out QuestionState
	if err := c.do(ctx, http.MethodGet, "/agent/questions/"+questionID, nil, &out); err != nil {
		return QuestionState{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("askhuman: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("askhuman: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Id", c.agentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("askhuman: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("askhuman: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("askhuman: decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError, tolerating bodies
// that are not the standard envelope.
func decodeError(resp *http.Response, payload []byte) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
	}

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return apiErr
}
