// Package recommend fetches the community list of domains that work well
// behind archive.is.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrInvalidFormat is returned when the response is not {"domains": [...]}.
var ErrInvalidFormat = errors.New("invalid recommended domains format")

const maxBodyBytes = 1 << 20

// Fetcher downloads the recommended domain list.
type Fetcher struct {
	url      string
	client   *retryablehttp.Client
	observer func(error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.client.HTTPClient = hc }
}

// WithRetry sets the retry budget and backoff bounds.
func WithRetry(max int, minWait, maxWait time.Duration) Option {
	return func(f *Fetcher) {
		f.client.RetryMax = max
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithObserver is called once per Fetch with its final error (nil on success).
func WithObserver(fn func(error)) Option {
	return func(f *Fetcher) { f.observer = fn }
}

func NewFetcher(url string, opts ...Option) *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = 15 * time.Second
	retryClient.Logger = slog.Default()
	// Hand the last response back so the status code can be reported.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{url: url, client: retryClient}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the endpoint the fetcher reads.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch returns the domains listed at the configured URL, unnormalised.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	domains, err := f.fetch(ctx)
	if f.observer != nil {
		f.observer(err)
	}
	return domains, err
}

func (f *Fetcher) fetch(ctx context.Context) ([]string, error) {
	if f.url == "" {
		return nil, fmt.Errorf("recommended domains url is empty")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recommended domains: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch recommended domains: status=%d", resp.StatusCode)
	}

	var payload struct {
		Domains *[]string `json:"domains"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if payload.Domains == nil {
		return nil, fmt.Errorf("%w: missing domains array", ErrInvalidFormat)
	}

	slog.Info("Fetched recommended domains", "count", len(*payload.Domains), "url", f.url)
	return *payload.Domains, nil
}
