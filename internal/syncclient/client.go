package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUnhealthy    = errors.New("remote unhealthy")
)

// DefaultRequestTimeout bounds a single batch call.
const DefaultRequestTimeout = 30 * time.Second

// Client talks to the remote authority.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a new sync client. A zero timeout uses DefaultRequestTimeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// --- Batch types (mirrors internal/remote, independently defined) ---

// BatchItem is one queued operation in a batch request.
type BatchItem struct {
	TaskID    string          `json:"taskId"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

// BatchRequest is the body for POST /v1/sync/batch.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchResult is the server's verdict on one item.
type BatchResult struct {
	TaskID     string          `json:"taskId"`
	Success    bool            `json:"success"`
	ServerData json.RawMessage `json:"serverData,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BatchResponse is the response from POST /v1/sync/batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// BatchSync sends a batch of operations. Any non-2xx reply is an error;
// per-item failures come back inside the response.
func (c *Client) BatchSync(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sync/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health probes GET /healthz. Only a 2xx reply counts as healthy; the
// caller bounds the wait through ctx.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error apiError `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Code != "" {
			apiErr := envelope.Error
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
