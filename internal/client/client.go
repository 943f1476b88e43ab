package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// MaxResponseSize caps JSON responses read from the server.
	MaxResponseSize = 1 << 20
	// MaxDownloadSize caps document and logo downloads.
	MaxDownloadSize = 64 << 20

	maxAttempts = 3
)

// ErrResponseTooLarge is returned when a response exceeds its read limit.
var ErrResponseTooLarge = errors.New("response body too large")

// Client handles unauthenticated communication with a projecthub server
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// HealthResponse represents the server health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// APIError is a non-2xx response. Detail carries the server's "detail"
// field when the body had one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryDelay: 200 * time.Millisecond,
	}
}

// BaseURL returns the server URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks if the server is healthy
func (c *Client) Health() (*HealthResponse, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.retryableRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := decodeResponse(resp, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// retryableRequest sends req, retrying transport errors and 502/503/504
// with a linear backoff. Other statuses are returned to the caller as is.
// Requests with a body must set GetBody to be retried.
func (c *Client) retryableRequest(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if req.Body != nil && req.GetBody == nil {
				break
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("failed to reset request body: %w", err)
				}
				req.Body = body
			}
			time.Sleep(time.Duration(attempt-1) * c.retryDelay)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if !retryableStatus(resp.StatusCode) || attempt == maxAttempts {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil, fmt.Errorf("request failed after retries: %w", lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// readLimitedResponse reads at most limit bytes from r and fails with
// ErrResponseTooLarge if more are available.
func readLimitedResponse(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// errorFromResponse builds an APIError from a failed response.
func errorFromResponse(resp *http.Response) error {
	body, _ := readLimitedResponse(resp.Body, MaxResponseSize)
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}

// decodeResponse fails on a non-200 status and otherwise decodes the JSON
// body into dst. A nil dst discards the body.
func decodeResponse(resp *http.Response, dst any) error {
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	if dst == nil {
		return nil
	}
	body, err := readLimitedResponse(resp.Body, MaxResponseSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
