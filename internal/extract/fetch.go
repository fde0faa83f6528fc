package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of an origin response is read.
const maxBodyBytes = 10 * 1024 * 1024

// FetcherOptions holds configuration for the origin fetcher.
type FetcherOptions struct {
	Timeout    time.Duration // Per-request timeout (default 20s)
	Delay      time.Duration // Minimum delay between origin requests (default 200ms)
	Attempts   int           // Total attempts incl. first (default 3)
	RetryDelay time.Duration // Base backoff delay (default 500ms)
	UserAgent  string
}

// Fetcher retrieves origin pages politely: rate limited, browser-like
// headers, bounded retries on transient failures only. Non-retryable
// statuses map straight to the extraction error taxonomy.
type Fetcher struct {
	http       *http.Client
	ua         string
	lim        *rate.Limiter
	attempts   int
	retryDelay time.Duration
}

// NewFetcher creates an origin fetcher.
func NewFetcher(opt FetcherOptions) *Fetcher {
	if opt.Timeout <= 0 {
		opt.Timeout = 20 * time.Second
	}
	if opt.Delay <= 0 {
		opt.Delay = 200 * time.Millisecond
	}
	if opt.Attempts <= 0 {
		opt.Attempts = 3
	}
	if opt.RetryDelay <= 0 {
		opt.RetryDelay = 500 * time.Millisecond
	}
	if opt.UserAgent == "" {
		opt.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		http:       &http.Client{Timeout: opt.Timeout},
		ua:         opt.UserAgent,
		lim:        rate.NewLimiter(rate.Every(opt.Delay), 1),
		attempts:   opt.Attempts,
		retryDelay: opt.RetryDelay,
	}
}

// page is one fetched origin response.
type page struct {
	body        []byte
	contentType string
	finalURL    string
}

// Fetch retrieves a URL. Network errors and 5xx responses retry with
// backoff; 4xx responses are permanent and map to typed errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*page, error) {
	var result *page

	err := retry.Do(
		func() error {
			p, err := f.fetchOnce(ctx, url)
			if err != nil {
				return err
			}
			result = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.attempts)),
		retry.Delay(f.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// Typed extraction errors are permanent.
			var ee *Error
			return !errors.As(err, &ee)
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*page, error) {
	if err := f.lim.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errExtractionFailed(ReasonGeneric, fmt.Sprintf("invalid URL: %v", err))
	}
	setBrowserHeaders(req, f.ua)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, errAccessDenied()
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errLoginRequired()
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, errExtractionFailed(ReasonGeneric, fmt.Sprintf("failed to fetch: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &page{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		finalURL:    finalURL,
	}, nil
}

func setBrowserHeaders(req *http.Request, ua string) {
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
