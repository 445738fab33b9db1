package rod

import (
	"context"
	"time"

	"github.com/fwojciec/sift"
)

// DefaultFetchTimeout bounds one rendered fetch.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements sift.Fetcher at compile time.
var _ sift.Fetcher = (*Fetcher)(nil)

// Fetcher renders pages in a browser tab and returns the resulting HTML,
// so JavaScript listings can be handed to a static source.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
	ready   string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithReadySelector makes Fetch wait for selector before reading the document.
func WithReadySelector(selector string) FetcherOption {
	return func(f *Fetcher) {
		f.ready = selector
	}
}

// NewFetcher returns a Fetcher opening tabs on manager.
// The manager is owned by the caller.
func NewFetcher(manager *BrowserManager, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{manager: manager, timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to the URL in a fresh tab and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := f.manager.NewSource(ctx)
	if err != nil {
		return "", err
	}
	defer src.Close()
	tab := src.(*Source)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := tab.Navigate(ctx, url, f.timeout); err != nil {
		return "", err
	}
	if f.ready != "" {
		if err := tab.WaitFor(ctx, f.ready, f.timeout); err != nil {
			return "", err
		}
	}
	return tab.HTML(ctx)
}

// Close is a no-op; the BrowserManager owns the browser.
func (f *Fetcher) Close() error {
	return nil
}
