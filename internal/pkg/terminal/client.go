// Package terminal talks to the biometric terminal through its HTTP bridge.
package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/sony/gobreaker"
)

// HTTPClient implements punch.Terminal against the bridge endpoints
// POST {base}/pause, POST {base}/resume and GET {base}/logs.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
}

// NewHTTPClient wraps every bridge call in a circuit breaker so a dead device
// fails fast until the breaker half-opens again.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "Terminal-Bridge",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// Pause implements punch.Terminal.
func (c *HTTPClient) Pause(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/pause")
	return err
}

// Resume implements punch.Terminal. It bypasses the breaker: a paused device
// must get its resume attempt even while the breaker is open.
func (c *HTTPClient) Resume(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/resume"); err != nil {
		return fmt.Errorf("%w: POST /resume: %v", punch.ErrDeviceConnection, err)
	}
	return nil
}

// FetchLogs implements punch.Terminal.
func (c *HTTPClient) FetchLogs(ctx context.Context) ([]punch.RawLog, error) {
	body, err := c.call(ctx, http.MethodGet, "/logs")
	if err != nil {
		return nil, err
	}
	return body.([]punch.RawLog), nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string) (interface{}, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.do(ctx, method, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Warn("Circuit breaker is open; skipping terminal call", "path", path)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", punch.ErrDeviceConnection, method, path, err)
	}
	return result, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("terminal bridge returned status %d", resp.StatusCode)
	}

	if method != http.MethodGet {
		return nil, nil
	}

	var logs []punch.RawLog
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		return nil, fmt.Errorf("decode terminal logs: %w", err)
	}
	return logs, nil
}
