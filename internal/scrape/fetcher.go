// Package scrape fetches listing pages and parses them into raw product
// records.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// ErrRateLimited means the fetch retry budget was exhausted on HTTP 429.
var ErrRateLimited = errors.New("rate limited and retry budget exhausted")

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Referer":         "https://www.amazon.com/",
}

// Fetcher retrieves HTML with jittered exponential backoff on HTTP 429.
// The backoff base doubles on each 429 and the sleep is randomized within
// [base, 2*base); attempts are capped so the retry loop is bounded.
type Fetcher struct {
	client      *http.Client
	maxRetries  int
	backoffBase time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewFetcher(maxRetries int, backoffBase time.Duration) *Fetcher {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
	}
}

// FetchHTML downloads url and returns the response body. Non-429 HTTP
// errors fail immediately; 429 retries with backoff until the cap.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	backoff := f.backoffBase
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		body, retry, err := f.fetchOnce(ctx, url)
		if err != nil {
			return "", err
		}
		if !retry {
			return body, nil
		}

		jittered := time.Duration(float64(backoff) * (1 + rand.Float64()))
		f.sleep(jittered)
		backoff *= 2
	}
	return "", fmt.Errorf("%w: %s", ErrRateLimited, url)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (body string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("build fetch request failed: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, nil
	}
	if resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("fetch %s failed with status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read fetch response failed: %w", err)
	}
	return string(raw), false, nil
}
