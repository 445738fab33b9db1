package sift

import "context"

// Fetcher retrieves raw HTML from URLs.
// Static page sources are built on top of a Fetcher.
type Fetcher interface {
	// Fetch retrieves the document at url.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases any held resources.
	Close() error
}
