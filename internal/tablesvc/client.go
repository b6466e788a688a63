package tablesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://app.smartsuite.com/api/v1"
	DefaultTimeout = 30 * time.Second

	userAgent = "RoriTable/1.0"
)

var (
	ErrMissingCredentials = errors.New("table service credentials are not configured")
	ErrMissingTableID     = errors.New("table id is required")
	ErrInvalidTableID     = errors.New("table id is not a valid path segment")
)

// Credentials authenticate every request against the table service.
type Credentials struct {
	APIKey    string
	AccountID string
}

func (c Credentials) valid() bool {
	return c.APIKey != "" && c.AccountID != ""
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the SmartSuite REST API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	credentials Credentials
	httpClient  *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithCredentials(creds Credentials) Option {
	return func(c *Client) {
		c.credentials = creds
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each outbound call. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.credentials.valid() {
		return nil, ErrMissingCredentials
	}
	return c, nil
}

// GetApplication fetches the table (application) structure, including its field definitions.
func (c *Client) GetApplication(ctx context.Context, tableID string) (map[string]any, error) {
	base, err := applicationPath(tableID)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, base, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecord posts fields as the request body verbatim and returns the created record.
func (c *Client) CreateRecord(ctx context.Context, tableID string, fields map[string]any) (map[string]any, error) {
	base, err := applicationPath(tableID)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, base+"records/", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applicationPath escapes tableID as a single path segment, so ids chosen by
// the model cannot reach another endpoint.
func applicationPath(tableID string) (string, error) {
	switch tableID {
	case "":
		return "", ErrMissingTableID
	case ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidTableID, tableID)
	}
	return "/applications/" + url.PathEscape(tableID) + "/", nil
}

// ListMembers returns the raw member items of the account.
func (c *Client) ListMembers(ctx context.Context) ([]map[string]any, error) {
	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := c.do(ctx, http.MethodPost, "/members/list/", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.credentials.APIKey)
	req.Header.Set("ACCOUNT-ID", c.credentials.AccountID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("table service request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("table service request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
