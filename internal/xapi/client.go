package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-xpost/xpost/internal/metrics"
)

// Client talks to the X API v2 media and post endpoints. It performs no
// retries of its own; retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    metrics.Recorder
}

// NewClient creates an X API client. baseURL is the API root
// (e.g. "https://api.x.com/2"); a trailing slash is stripped.
func NewClient(httpClient *http.Client, baseURL string, m metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		metrics:    m,
	}
}

// apiErrorBody is the error shape the X API returns on non-2xx responses.
type apiErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// postJSON sends an authenticated POST with a JSON body and decodes the
// response into out (when out is non-nil). Non-2xx responses are returned
// as *APIError with whatever structured detail the body carried.
func (c *Client) postJSON(
	ctx context.Context,
	path string,
	accessToken string,
	reqBody any,
	out any,
) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody apiErrorBody
		if jsonErr := json.Unmarshal(body, &errBody); jsonErr == nil {
			apiErr.Title = errBody.Title
			apiErr.Detail = errBody.Detail
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
