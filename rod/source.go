package rod

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/sift"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Compile-time interface verification.
var (
	_ sift.PageSource = (*Source)(nil)
	_ sift.Clicker    = (*Source)(nil)
)

// Source drives one browser tab. Elements it returns are *rod.Element
// values. A Source must not be shared between goroutines.
type Source struct {
	page    *rod.Page
	release func()
	once    sync.Once
}

// Navigate loads url and waits for the load event.
func (s *Source) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page := s.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
	}

	if err := page.Navigate(url); err != nil {
		return pageError(ctx, err, "navigating to %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return pageError(ctx, err, "loading %s", url)
	}
	return nil
}

// QueryAll returns the elements under scope matching selector without waiting.
func (s *Source) QueryAll(ctx context.Context, scope sift.Element, selector string) ([]sift.Element, error) {
	var (
		els rod.Elements
		err error
	)
	if scope == nil {
		els, err = s.page.Context(ctx).Elements(selector)
	} else {
		base, ok := scope.(*rod.Element)
		if !ok {
			return nil, foreign(scope)
		}
		els, err = base.Context(ctx).Elements(selector)
	}
	if err != nil {
		return nil, pageError(ctx, err, "querying %q", selector)
	}

	out := make([]sift.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

// QueryAttribute reads an attribute or the visible text of the first match.
// An empty selector reads el itself.
func (s *Source) QueryAttribute(ctx context.Context, el sift.Element, selector, attribute string) (string, bool, error) {
	target, err := s.first(ctx, el, selector)
	if err != nil || target == nil {
		return "", false, err
	}
	target = target.Context(ctx)

	if attribute == "" {
		text, err := target.Text()
		if err != nil {
			return "", false, pageError(ctx, err, "reading text of %q", selector)
		}
		return text, true, nil
	}
	v, err := target.Attribute(attribute)
	if err != nil {
		return "", false, pageError(ctx, err, "reading %s of %q", attribute, selector)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (s *Source) first(ctx context.Context, el sift.Element, selector string) (*rod.Element, error) {
	if el != nil {
		base, ok := el.(*rod.Element)
		if !ok {
			return nil, foreign(el)
		}
		if selector == "" {
			return base, nil
		}
		els, err := base.Context(ctx).Elements(selector)
		if err != nil {
			return nil, pageError(ctx, err, "querying %q", selector)
		}
		if els.Empty() {
			return nil, nil
		}
		return els.First(), nil
	}
	if selector == "" {
		return nil, sift.Errorf(sift.EINVALID, "selector required without an element")
	}
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, pageError(ctx, err, "querying %q", selector)
	}
	if els.Empty() {
		return nil, nil
	}
	return els.First(), nil
}

// WaitFor blocks until selector matches or timeout elapses.
func (s *Source) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	page := s.page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
	}
	if _, err := page.Element(selector); err != nil {
		return pageError(ctx, err, "waiting for %q", selector)
	}
	return nil
}

// Click clicks the first element matching selector if one is present.
func (s *Source) Click(ctx context.Context, selector string) (bool, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return false, pageError(ctx, err, "looking up %q", selector)
	}
	if !has {
		return false, nil
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, pageError(ctx, err, "clicking %q", selector)
	}
	return true, nil
}

// HTML returns the current rendered document.
func (s *Source) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", pageError(ctx, err, "reading document")
	}
	return html, nil
}

// Close closes the tab. Close is safe to call multiple times.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		err = s.page.Close()
		if s.release != nil {
			s.release()
		}
	})
	return err
}

// pageError maps rod failures onto sift error codes. Cancellation of the
// caller context is returned untouched.
func pageError(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sift.Errorf(sift.ETIMEOUT, format+": timed out", args...)
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return sift.Errorf(sift.ENAVIGATION, format+": %s", append(args, navErr.Reason)...)
	}
	return sift.Errorf(sift.ENAVIGATION, format+": %v", append(args, err)...)
}

func foreign(el sift.Element) error {
	return sift.Errorf(sift.EINVALID, "element %T does not belong to this source", el)
}
