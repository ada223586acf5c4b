package apicheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// Client is a small JSON client for the auth API
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  arbor.ILogger
}

// NewClient creates a client with a request timeout
func NewClient(baseURL string, timeout time.Duration, logger arbor.ILogger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Response is a fully read HTTP response
type Response struct {
	Status int
	Body   []byte
}

// JSON decodes the body into target
func (r *Response) JSON(target interface{}) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w (body: %s)", err, truncate(r.Body))
	}
	return nil
}

// Get makes a GET request. token, when set, is sent as a bearer token.
func (c *Client) Get(ctx context.Context, path, token string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, token)
}

// Post makes a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}, token string) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, token)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, token string) (*Response, error) {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	return &Response{Status: resp.StatusCode, Body: data}, nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
