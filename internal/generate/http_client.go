package generate

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// BackendError is a terminal error from the generation backend.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("generation backend: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether retrying the same request could succeed.
// Server errors might; client errors won't.
func (e *BackendError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient talks to a generation backend over HTTP: one POST to submit
// the prompt, then polling until the backend reports a terminal state.
type HTTPClient struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewHTTPClient(baseURL, token string, pollInterval time.Duration, logger *slog.Logger) *HTTPClient {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &HTTPClient{
		baseURL:      baseURL,
		token:        token,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type submitRequest struct {
	Prompt string `json:"prompt"`
	Kind   string `json:"kind"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type pollResponse struct {
	Status    string  `json:"status"`
	MediaURL  string  `json:"media_url,omitempty"`
	DurationS float64 `json:"duration_s,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (c *HTTPClient) Generate(ctx context.Context, prompt, kind string) (Result, error) {
	requestID, err := c.submit(ctx, prompt, kind)
	if err != nil {
		return Result{}, err
	}

	c.logger.Info("generation submitted", "request_id", requestID, "kind", kind)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
			status, err := c.poll(ctx, requestID)
			if err != nil {
				return Result{}, err
			}
			switch status.Status {
			case "completed":
				if status.MediaURL == "" || status.DurationS <= 0 {
					return Result{}, fmt.Errorf("generation completed without usable media (url=%q duration=%g)", status.MediaURL, status.DurationS)
				}
				return Result{SourceHandle: status.MediaURL, Duration: status.DurationS}, nil
			case "failed":
				return Result{}, fmt.Errorf("generation failed: %s", status.Error)
			}
			// pending/running: keep polling
		}
	}
}

func (c *HTTPClient) submit(ctx context.Context, prompt, kind string) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: prompt, Kind: kind})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result submitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if result.RequestID == "" {
		return "", fmt.Errorf("backend returned no request id")
	}
	return result.RequestID, nil
}

func (c *HTTPClient) poll(ctx context.Context, requestID string) (*pollResponse, error) {
	url := fmt.Sprintf("%s/api/generate/%s", c.baseURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result pollResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-Id", generateRequestID())
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
