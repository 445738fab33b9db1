package mock

import (
	"context"
	"time"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.PageSource    = (*PageSource)(nil)
	_ sift.Clicker       = (*PageSource)(nil)
	_ sift.SourceFactory = (*SourceFactory)(nil)
	_ sift.DomainLimiter = (*DomainLimiter)(nil)
)

// PageSource is a mock implementation of sift.PageSource and sift.Clicker.
type PageSource struct {
	NavigateFn       func(ctx context.Context, url string, timeout time.Duration) error
	QueryAllFn       func(ctx context.Context, scope sift.Element, selector string) ([]sift.Element, error)
	QueryAttributeFn func(ctx context.Context, el sift.Element, selector, attribute string) (string, bool, error)
	WaitForFn        func(ctx context.Context, selector string, timeout time.Duration) error
	ClickFn          func(ctx context.Context, selector string) (bool, error)
	CloseFn          func() error
}

func (s *PageSource) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.NavigateFn(ctx, url, timeout)
}

func (s *PageSource) QueryAll(ctx context.Context, scope sift.Element, selector string) ([]sift.Element, error) {
	return s.QueryAllFn(ctx, scope, selector)
}

func (s *PageSource) QueryAttribute(ctx context.Context, el sift.Element, selector, attribute string) (string, bool, error) {
	return s.QueryAttributeFn(ctx, el, selector, attribute)
}

func (s *PageSource) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return s.WaitForFn(ctx, selector, timeout)
}

func (s *PageSource) Click(ctx context.Context, selector string) (bool, error) {
	return s.ClickFn(ctx, selector)
}

func (s *PageSource) Close() error {
	return s.CloseFn()
}

// SourceFactory is a mock implementation of sift.SourceFactory.
type SourceFactory struct {
	NewSourceFn func(ctx context.Context) (sift.PageSource, error)
}

func (f *SourceFactory) NewSource(ctx context.Context) (sift.PageSource, error) {
	return f.NewSourceFn(ctx)
}

// DomainLimiter is a mock implementation of sift.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
