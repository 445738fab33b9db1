// Package goquery provides a static sift.PageSource backed by goquery.
// Pages are fetched as raw HTML and queried without executing JavaScript.
package goquery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sift"
)

// Ensure Source implements sift.PageSource at compile time.
var _ sift.PageSource = (*Source)(nil)

// Source queries documents loaded through a sift.Fetcher.
// Elements it returns are *goquery.Selection values holding one node.
type Source struct {
	fetcher sift.Fetcher
	doc     *goquery.Document
}

// NewSource returns a Source that loads pages with fetcher.
func NewSource(fetcher sift.Fetcher) *Source {
	return &Source{fetcher: fetcher}
}

// NewDocumentSource returns a Source with html already loaded.
// Navigate is unavailable unless a fetcher is attached later.
func NewDocumentSource(html string) (*Source, error) {
	s := &Source{}
	if err := s.load(html); err != nil {
		return nil, err
	}
	return s, nil
}

// Navigate fetches url and parses the response body.
func (s *Source) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if s.fetcher == nil {
		return sift.Errorf(sift.ENAVIGATION, "no fetcher configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return sift.Errorf(sift.ETIMEOUT, "loading %s timed out after %s", url, timeout)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		if code := sift.ErrorCode(err); code == sift.ENAVIGATION || code == sift.ETIMEOUT {
			return err
		}
		return sift.Errorf(sift.ENAVIGATION, "loading %s: %v", url, err)
	}
	return s.load(html)
}

func (s *Source) load(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return sift.Errorf(sift.EINVALID, "failed to parse HTML: %v", err)
	}
	s.doc = doc
	return nil
}

// QueryAll returns one element per node under scope matching selector.
func (s *Source) QueryAll(ctx context.Context, scope sift.Element, selector string) ([]sift.Element, error) {
	base, err := s.scope(scope)
	if err != nil {
		return nil, err
	}
	var out []sift.Element
	base.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel)
	})
	return out, nil
}

// QueryAttribute reads an attribute or the text of the first match.
func (s *Source) QueryAttribute(ctx context.Context, el sift.Element, selector, attribute string) (string, bool, error) {
	base, err := s.scope(el)
	if err != nil {
		return "", false, err
	}
	if selector != "" {
		base = base.Find(selector).First()
	}
	if base.Length() == 0 {
		return "", false, nil
	}
	if attribute == "" {
		return base.Text(), true, nil
	}
	v, ok := base.Attr(attribute)
	return v, ok, nil
}

// WaitFor reports whether selector matches the loaded document. A static
// document never changes, so a miss is an immediate ETIMEOUT.
func (s *Source) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc == nil {
		return sift.Errorf(sift.ENAVIGATION, "no document loaded")
	}
	if s.doc.Find(selector).Length() == 0 {
		return sift.Errorf(sift.ETIMEOUT, "selector %q not found", selector)
	}
	return nil
}

// Close drops the loaded document. The fetcher is owned by the caller.
func (s *Source) Close() error {
	s.doc = nil
	return nil
}

func (s *Source) scope(el sift.Element) (*goquery.Selection, error) {
	if el == nil {
		if s.doc == nil {
			return nil, sift.Errorf(sift.ENAVIGATION, "no document loaded")
		}
		return s.doc.Selection, nil
	}
	sel, ok := el.(*goquery.Selection)
	if !ok {
		return nil, sift.Errorf(sift.EINVALID, "element %T does not belong to this source", el)
	}
	return sel, nil
}

// Ensure SourceFactory implements sift.SourceFactory at compile time.
var _ sift.SourceFactory = (*SourceFactory)(nil)

// SourceFactory creates independent static sources sharing one fetcher.
type SourceFactory struct {
	Fetcher sift.Fetcher
}

// NewSource returns a fresh Source.
func (f *SourceFactory) NewSource(ctx context.Context) (sift.PageSource, error) {
	return NewSource(f.Fetcher), nil
}
