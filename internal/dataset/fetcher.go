package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"newsmask/internal/config"
)

// Fetch errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrBodyTooLarge         = errors.New("response body exceeds buffer_size_kb")
)

// Fetcher reads split sources from local files or over HTTP with config-driven retries.
type Fetcher struct {
	client       *http.Client
	retryPolicy  config.RetryPolicy
	bufferSizeKb int
}

// NewFetcher creates a fetcher with the given retry policy and body size limit.
func NewFetcher(retryPolicy config.RetryPolicy, bufferSizeKb int) *Fetcher {
	if bufferSizeKb <= 0 {
		bufferSizeKb = 4096
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
		},
		retryPolicy:  retryPolicy,
		bufferSizeKb: bufferSizeKb,
	}
}

// FetchWithMetrics returns (body, statusCode, duration, error).
func (f *Fetcher) FetchWithMetrics(ctx context.Context, url string) ([]byte, int, time.Duration, error) {
	var lastErr error

	var lastStatusCode int

	totalDuration := time.Duration(0)
	attempts := max(f.retryPolicy.MaxAttempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, f.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return nil, lastStatusCode, totalDuration, err
			}
		}

		startTime := time.Now()
		body, status, err := f.fetchOnce(ctx, url)
		totalDuration += time.Since(startTime)
		lastStatusCode = status

		if err == nil {
			return body, status, totalDuration, nil
		}

		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, attempts, err)

		if ctx.Err() != nil {
			return nil, status, totalDuration, ctx.Err()
		}

		// Only retry on transport errors and temporary status codes
		if status != 0 && !isRetryableStatus(status) {
			break
		}
	}

	return nil, lastStatusCode, totalDuration, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "newsmask/1.0")
	req.Header.Set("Accept", "application/json, application/x-ndjson, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// bufferSizeKb is in KB, convert to bytes
	limit := int64(f.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > limit {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s is larger than %d KB", ErrBodyTooLarge, url, f.bufferSizeKb)
	}

	return body, resp.StatusCode, nil
}

// Fetch returns the body of url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, _, _, err := f.FetchWithMetrics(ctx, url)

	return body, err
}

// ReadLocalFile reads content from a local file path.
func (f *Fetcher) ReadLocalFile(filePath string) ([]byte, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return content, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout,  // 504
		http.StatusBadGateway,      // 502
		http.StatusTooManyRequests, // 429
		http.StatusRequestTimeout:  // 408
		return true
	}

	return false
}
