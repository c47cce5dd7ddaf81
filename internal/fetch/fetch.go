// Package fetch retrieves text payloads by locator.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultMaxBytes caps payloads when HTTPFetcher.MaxBytes is unset.
const DefaultMaxBytes = 10 << 20

// ErrTooLarge is returned when a payload exceeds the fetcher's limit.
var ErrTooLarge = errors.New("payload too large")

// Fetcher yields the text behind a locator or fails. No retries.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// HTTPFetcher fetches http(s) URLs.
type HTTPFetcher struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxBytes caps the payload size; 0 means DefaultMaxBytes. Larger
	// payloads fail with ErrTooLarge rather than being cut short.
	MaxBytes int64
}

// New creates a fetcher with sane defaults.
func New() *HTTPFetcher {
	return &HTTPFetcher{Timeout: 10 * time.Second}
}

func (f *HTTPFetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: f.Timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", locator, err)
	}
	res, err := f.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", locator, err)
	}
	defer res.Body.Close()
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", locator, err)
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("fetch %s: over %d bytes: %w", locator, limit, ErrTooLarge)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d: %s", locator, res.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// FileFetcher reads local paths; "file://" prefixes are stripped.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, locator string) (string, error) {
	data, err := os.ReadFile(strings.TrimPrefix(locator, "file://"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ForLocator picks the fetcher matching the locator's scheme.
func ForLocator(locator string) Fetcher {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return New()
	}
	return FileFetcher{}
}
