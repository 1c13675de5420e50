package dataclient

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

	"log/slog"

	"github.com/voxlane/vox/internal/logging"
	"github.com/voxlane/vox/pkg/domain"
	"github.com/voxlane/vox/pkg/ports"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 10 * time.Second
)

const headerDatabaseID = "x-databaseid"

// Config holds the connection settings for the data service.
type Config struct {
	// BaseURL is the service root, e.g. "https://data.internal:8443".
	BaseURL string

	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration

	// MaxAttempts is the total number of tries per operation, first
	// attempt included.
	MaxAttempts int

	// RetryBaseDelay is the backoff before the second attempt; it
	// doubles per retry up to RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// HTTPClient overrides the transport. Mostly for tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the backing data service. It implements
// ports.DataService and is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *slog.Logger
}

var _ ports.DataService = (*Client)(nil)

// New builds a client from cfg, applying defaults for unset fields.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("dataclient: BaseURL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("dataclient: invalid BaseURL: %w", err)
	}

	c := &Client{
		baseURL:     base,
		httpClient:  cfg.HTTPClient,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
		logger:      cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultRetryBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = DefaultRetryMaxDelay
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c, nil
}

// GetStudyData fetches the study document.
func (c *Client) GetStudyData(ctx context.Context, databaseID, studyID string) (map[string]any, error) {
	path := "/api/study/" + url.PathEscape(studyID)
	return c.do(ctx, "GetStudyData", http.MethodGet, path, nil, databaseID, nil, true)
}

// UpdateSessionData applies a partial patch to the durable session record.
func (c *Client) UpdateSessionData(ctx context.Context, databaseID, studyID, participantID, sessionID string, patch map[string]any) (map[string]any, error) {
	path := fmt.Sprintf("/api/study/%s/participants/%s/sessions/%s",
		url.PathEscape(studyID), url.PathEscape(participantID), url.PathEscape(sessionID))
	return c.do(ctx, "UpdateSessionData", http.MethodPatch, path, nil, databaseID, patch, true)
}

// GetFrameData fetches design metadata for one frame of a file.
func (c *Client) GetFrameData(ctx context.Context, databaseID, fileKey, frameID string) (map[string]any, error) {
	query := url.Values{}
	query.Set("fileKey", fileKey)
	query.Set("frameId", frameID)
	return c.do(ctx, "GetFrameData", http.MethodGet, "/api/figma/collection", query, databaseID, nil, true)
}

// AppendInteractionEvent persists one interaction event. Events carry
// their own ids, so a replay after an ambiguous failure is idempotent.
func (c *Client) AppendInteractionEvent(ctx context.Context, databaseID, studyID, participantID string, event domain.InteractionEvent) error {
	path := fmt.Sprintf("/api/study/%s/participants/%s/sessions/%s/events",
		url.PathEscape(studyID), url.PathEscape(participantID), url.PathEscape(event.SessionID))
	_, err := c.do(ctx, "AppendInteractionEvent", http.MethodPost, path, nil, databaseID, event, true)
	return err
}

// HealthCheck probes the service.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.do(ctx, "HealthCheck", http.MethodGet, "/api/healthCheck", nil, "", nil, true)
	return err
}

// do runs one operation through the retry loop. Only idempotent
// operations are retried; a terminal failure is always a single *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, databaseID string, body any, idempotent bool) (map[string]any, error) {
	var lastErr *Error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoff(attempt - 1)
			c.logger.Warn("data service call failed, retrying",
				"op", op,
				"attempt", attempt,
				"backoff", backoff,
				"err", lastErr,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				class, _ := classifyTransport(ctx.Err())
				return nil, &Error{Op: op, Classification: class, Message: "aborted while waiting to retry", Err: ctx.Err()}
			}
		}

		result, err := c.once(ctx, op, method, path, query, databaseID, body)
		if err == nil {
			return result, nil
		}
		errors.As(err, &lastErr)

		if !idempotent || !lastErr.retryable {
			break
		}
	}
	return nil, lastErr
}

// once performs a single HTTP attempt with the per-call timeout.
func (c *Client) once(ctx context.Context, op, method, path string, query url.Values, databaseID string, body any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Classification: ClassValidation, Message: "request body not encodable", Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, &Error{Op: op, Classification: ClassUnknown, Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if databaseID != "" {
		req.Header.Set(headerDatabaseID, databaseID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		class, retryable := classifyTransport(err)
		return nil, &Error{Op: op, Classification: class, Message: "request failed", Err: err, retryable: retryable}
	}
	defer resp.Body.Close()

	c.logger.Debug("data service response",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class, retryable := classifyStatus(resp.StatusCode)
		return nil, &Error{
			Op:             op,
			Classification: class,
			StatusCode:     resp.StatusCode,
			Message:        readErrorMessage(resp.Body),
			retryable:      retryable,
		}
	}

	var envelope struct {
		Success *bool          `json:"success"`
		Data    map[string]any `json:"data"`
		Message string         `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &Error{Op: op, Classification: ClassUnknown, StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return envelope.Data, nil
}

// backoff returns the delay before retry n (1-based), doubling from the
// base delay and capped at the max.
func (c *Client) backoff(n int) time.Duration {
	delay := c.baseDelay << uint(n-1)
	if delay > c.maxDelay || delay <= 0 {
		return c.maxDelay
	}
	return delay
}

// readErrorMessage extracts a service error message from a failed
// response, falling back to the raw (truncated) body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil || len(raw) == 0 {
		return "no response body"
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
		return envelope.Message
	}
	return strings.TrimSpace(string(raw))
}
