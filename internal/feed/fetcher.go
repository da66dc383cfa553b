package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent announces the service to feed servers.
const userAgent = "Mozilla/5.0 (compatible; AlertHub/1.0; RSS Reader)"

// Fetch limits.
const (
	defaultFetchTimeout = 20 * time.Second
	maxBodyBytes        = 10 << 20
)

// Fetcher downloads feed documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher wires an HTTP client; a nil client gets a default with a
// 20-second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch downloads the document at feedURL and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if reqErr != nil {
		return "", fmt.Errorf("build request: %w", reqErr)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("fetch feed: %w", doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch feed: unexpected status %d for %s", resp.StatusCode, feedURL)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return "", fmt.Errorf("read feed body: %w", readErr)
	}

	return string(body), nil
}
