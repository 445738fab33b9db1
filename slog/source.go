package slog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.PageSource    = (*LoggingSource)(nil)
	_ sift.Clicker       = (*LoggingSource)(nil)
	_ sift.SourceFactory = (*LoggingFactory)(nil)
)

// LoggingSource wraps a PageSource. Navigation, waits and clicks are logged
// at info level, element queries at debug level.
type LoggingSource struct {
	next   sift.PageSource
	logger *slog.Logger
}

// NewLoggingSource creates a new LoggingSource.
func NewLoggingSource(next sift.PageSource, logger *slog.Logger) *LoggingSource {
	return &LoggingSource{next: next, logger: logger}
}

func (s *LoggingSource) Navigate(ctx context.Context, url string, timeout time.Duration) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("navigate",
			"url", url,
			"timeout", timeout,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Navigate(ctx, url, timeout)
}

func (s *LoggingSource) QueryAll(ctx context.Context, scope sift.Element, selector string) (els []sift.Element, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("query all",
			"selector", selector,
			"matches", len(els),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.QueryAll(ctx, scope, selector)
}

func (s *LoggingSource) QueryAttribute(ctx context.Context, el sift.Element, selector, attribute string) (v string, ok bool, err error) {
	defer func() {
		s.logger.Debug("query attribute",
			"selector", selector,
			"attribute", attribute,
			"found", ok,
			"err", err,
		)
	}()
	return s.next.QueryAttribute(ctx, el, selector, attribute)
}

func (s *LoggingSource) WaitFor(ctx context.Context, selector string, timeout time.Duration) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("wait for",
			"selector", selector,
			"timeout", timeout,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.WaitFor(ctx, selector, timeout)
}

// Click delegates when the wrapped source can click and reports a miss
// otherwise.
func (s *LoggingSource) Click(ctx context.Context, selector string) (clicked bool, err error) {
	clicker, ok := s.next.(sift.Clicker)
	if !ok {
		return false, nil
	}
	defer func() {
		s.logger.Info("click",
			"selector", selector,
			"clicked", clicked,
			"err", err,
		)
	}()
	return clicker.Click(ctx, selector)
}

func (s *LoggingSource) Close() error {
	return s.next.Close()
}

// LoggingFactory wraps a SourceFactory so every source it creates logs
// under a "worker" attribute.
type LoggingFactory struct {
	next   sift.SourceFactory
	logger *slog.Logger
	seq    atomic.Int64
}

// NewLoggingFactory creates a new LoggingFactory.
func NewLoggingFactory(next sift.SourceFactory, logger *slog.Logger) *LoggingFactory {
	return &LoggingFactory{next: next, logger: logger}
}

func (f *LoggingFactory) NewSource(ctx context.Context) (sift.PageSource, error) {
	src, err := f.next.NewSource(ctx)
	if err != nil {
		f.logger.Error("new source", "err", err)
		return nil, err
	}
	worker := f.seq.Add(1)
	return NewLoggingSource(src, f.logger.With("worker", worker)), nil
}
