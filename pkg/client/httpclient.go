package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// TokenSource, when set, supplies the bearer token for each request.
	TokenSource func() (string, error)
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// DecodeData unwraps the {"data": ...} envelope written by the services.
func (r *Response) DecodeData(target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response envelope (status %d): %w", r.StatusCode, err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data (status %d): %w", r.StatusCode, err)
	}
	return nil
}

func (r *Response) ToString() string {
	return fmt.Sprintf("status=%d body=%s", r.StatusCode, string(r.Body))
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, nil)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body, nil)
}

func (c *HttpClient) DELETE(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HttpClient) POSTWithHeaders(ctx context.Context, path string, body any, headers map[string]string) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, headers)
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.TokenSource != nil {
		token, err := c.TokenSource()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{Response: resp, Body: respBody}, nil
}

func (c *HttpClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := c.GET(ctx, "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}

func GetErrorMessage(resp *Response) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return fmt.Sprintf("failed to unmarshal error: %v", err)
	}

	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	return errResp.Code
}
