// Package gateway reads contract storage and account holdings from a
// MultiversX gateway at a fixed block nonce.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for the gateway API with retry on 429 and 503.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration

	storage *cache[map[string]string]
	tokens  *cache[map[string]esdtEntry]
}

// NewClient creates a new gateway client.
func NewClient(baseURL string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		storage:    newCache[map[string]string](),
		tokens:     newCache[map[string]esdtEntry](),
	}
}

// envelope wraps every gateway response.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func (e envelope) message() string {
	if e.Code == "" {
		return e.Error
	}
	return fmt.Sprintf("%s (%s)", e.Error, e.Code)
}

// query reads path and decodes the data field of the envelope into dest.
// Rate limited and unavailable responses are retried with exponential backoff.
func (c *Client) query(ctx context.Context, path string, dest any) error {
	for attempt := 0; ; attempt++ {
		status, env, err := c.do(ctx, path)
		if err != nil {
			return err
		}

		switch {
		case status == http.StatusOK && env.Error == "":
			if err := json.Unmarshal(env.Data, dest); err != nil {
				return fmt.Errorf("parsing data from %s: %w", path, err)
			}
			return nil
		case status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable:
			return fmt.Errorf("gateway error from %s: HTTP %d: %s", path, status, env.message())
		case attempt == c.maxRetries:
			return fmt.Errorf("gateway %s: HTTP %d after %d attempts", path, status, attempt+1)
		}

		delay := c.baseDelay * time.Duration(1<<uint(attempt))
		slog.Debug("gateway busy, retrying", "path", path, "status", status, "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// do performs one GET. A non-JSON body of a failed response becomes the envelope error.
func (c *Client) do(ctx context.Context, path string) (int, envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("reading response from %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode == http.StatusOK {
			return 0, envelope{}, fmt.Errorf("parsing JSON from %s: %w", path, err)
		}
		env.Error = strings.TrimSpace(string(body))
	}
	return resp.StatusCode, env, nil
}
