package canary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finpulse/internal/api"
)

// Client issues probe requests against the deployed API base URL and
// parses the uniform response body.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Do sends one request. A transport failure or an unparseable body is an
// error; any parseable response, success or failure, is returned for the
// probe to judge.
func (c *Client) Do(ctx context.Context, method, path, token string, body interface{}) (*ProbeResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal probe request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe response: %w", err)
	}

	var parsed api.Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("probe response is not valid JSON: %w", err)
	}

	return &ProbeResponse{
		StatusCode: resp.StatusCode,
		Cookies:    resp.Cookies(),
		Body:       &parsed,
		RawBody:    raw,
	}, nil
}
