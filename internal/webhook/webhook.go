// Package webhook posts a signed notification after every sync pass.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tdsync "github.com/marcus/tasksync/internal/sync"
)

const defaultTimeout = 10 * time.Second

// Payload is the webhook POST body.
type Payload struct {
	ProjectDir string         `json:"project_dir"`
	Timestamp  string         `json:"timestamp"`
	Result     *tdsync.Result `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BuildPayload describes one finished pass.
func BuildPayload(projectDir string, at time.Time, res *tdsync.Result, err error) Payload {
	p := Payload{
		ProjectDir: projectDir,
		Timestamp:  at.UTC().Format(time.RFC3339),
		Result:     res,
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

// Sign returns the hex HMAC-SHA256 of "timestamp.body".
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Dispatch performs a synchronous HTTP POST to the webhook URL.
// Returns nil on success (2xx status).
func Dispatch(ctx context.Context, client *http.Client, url, secret string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tasksync-webhook/1")

	unixTS := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Tasksync-Timestamp", unixTS)
	if secret != "" {
		req.Header.Set("X-Tasksync-Signature", "sha256="+Sign(secret, unixTS, body))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// Hook notifies a URL about finished passes. It satisfies
// scheduler.Observer.
type Hook struct {
	URL        string
	Secret     string
	ProjectDir string
	Client     *http.Client
	Logger     *slog.Logger
}

// New creates a hook; timeout <= 0 uses ten seconds.
func New(url, secret, projectDir string, timeout time.Duration, logger *slog.Logger) *Hook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{
		URL:        url,
		Secret:     secret,
		ProjectDir: projectDir,
		Client:     &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// PassFinished posts the pass outcome. Delivery failures are logged, never
// returned; a webhook must not fail a sync.
func (h *Hook) PassFinished(ctx context.Context, at time.Time, res *tdsync.Result, err error) {
	// The pass may have ended because ctx was canceled; still report it.
	ctx = context.WithoutCancel(ctx)
	payload := BuildPayload(h.ProjectDir, at, res, err)
	if derr := Dispatch(ctx, h.Client, h.URL, h.Secret, payload); derr != nil {
		h.Logger.Warn("webhook delivery failed", "url", h.URL, "err", derr)
		return
	}
	h.Logger.Debug("webhook delivered", "url", h.URL)
}
