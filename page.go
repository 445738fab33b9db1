package sift

import (
	"context"
	"time"
)

// Element is an opaque handle to one node of a loaded page. It is only
// meaningful to the PageSource that returned it.
type Element any

// PageSource navigates to pages and queries their elements.
// A PageSource is owned by one goroutine at a time.
type PageSource interface {
	// Navigate loads url and waits for the document to settle.
	// Failures are reported as ENAVIGATION, expired timeouts as ETIMEOUT.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// QueryAll returns the elements under scope matching selector.
	// A nil scope means the whole document.
	QueryAll(ctx context.Context, scope Element, selector string) ([]Element, error)

	// QueryAttribute reads attribute from the first element under el
	// matching selector. An empty selector means el itself and an empty
	// attribute means the element's visible text. The boolean is false
	// when the element or attribute is absent.
	QueryAttribute(ctx context.Context, el Element, selector, attribute string) (string, bool, error)

	// WaitFor blocks until selector matches or timeout elapses (ETIMEOUT).
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Close releases the page resources.
	Close() error
}

// Clicker is implemented by page sources that can interact with elements,
// such as dismissing a consent banner.
type Clicker interface {
	// Click clicks the first element matching selector.
	// The boolean is false if nothing matched.
	Click(ctx context.Context, selector string) (bool, error)
}

// SourceFactory hands out independent page sources, one per worker.
type SourceFactory interface {
	NewSource(ctx context.Context) (PageSource, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// URLSet tracks URLs already seen. Implementations may report false
// positives but never false negatives.
type URLSet interface {
	Add(url string)
	Test(url string) bool
}
