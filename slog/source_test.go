package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/mock"
	siftslog "github.com/fwojciec/sift/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSource(t *testing.T) {
	t.Parallel()

	t.Run("logs navigation with timeout and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.PageSource{
			NavigateFn: func(context.Context, string, time.Duration) error { return nil },
		}

		err := siftslog.NewLoggingSource(inner, logger).Navigate(context.Background(), "https://shop.example/p/1", 5*time.Second)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "msg=navigate")
		assert.Contains(t, output, "url=https://shop.example/p/1")
		assert.Contains(t, output, "timeout=5s")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs wait failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.PageSource{
			WaitForFn: func(context.Context, string, time.Duration) error {
				return sift.Errorf(sift.ETIMEOUT, "selector not found")
			},
		}

		err := siftslog.NewLoggingSource(inner, logger).WaitFor(context.Background(), "#search", time.Second)

		assert.Equal(t, sift.ETIMEOUT, sift.ErrorCode(err))
		assert.Contains(t, buf.String(), "selector not found")
	})

	t.Run("queries log at debug level only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.PageSource{
			QueryAllFn: func(context.Context, sift.Element, string) ([]sift.Element, error) {
				return []sift.Element{1, 2}, nil
			},
			QueryAttributeFn: func(context.Context, sift.Element, string, string) (string, bool, error) {
				return "x", true, nil
			},
		}
		src := siftslog.NewLoggingSource(inner, logger)

		els, err := src.QueryAll(context.Background(), nil, ".item")
		require.NoError(t, err)
		v, ok, err := src.QueryAttribute(context.Background(), els[0], "h2", "")
		require.NoError(t, err)

		assert.Len(t, els, 2)
		assert.True(t, ok)
		assert.Equal(t, "x", v)
		assert.Empty(t, buf.String())

		buf.Reset()
		debug := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		_, _ = siftslog.NewLoggingSource(inner, debug).QueryAll(context.Background(), nil, ".item")
		assert.Contains(t, buf.String(), "matches=2")
	})

	t.Run("click delegates to clicking sources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.PageSource{
			ClickFn: func(_ context.Context, selector string) (bool, error) {
				return selector == "#accept", nil
			},
		}

		clicked, err := siftslog.NewLoggingSource(inner, logger).Click(context.Background(), "#accept")

		require.NoError(t, err)
		assert.True(t, clicked)
		assert.Contains(t, buf.String(), "clicked=true")
	})

	t.Run("click misses on sources that cannot click", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		var inner struct{ sift.PageSource }

		clicked, err := siftslog.NewLoggingSource(&inner, logger).Click(context.Background(), "#accept")

		require.NoError(t, err)
		assert.False(t, clicked)
	})

	t.Run("close delegates", func(t *testing.T) {
		t.Parallel()

		closed := false
		inner := &mock.PageSource{CloseFn: func() error { closed = true; return nil }}

		require.NoError(t, siftslog.NewLoggingSource(inner, slog.Default()).Close())
		assert.True(t, closed)
	})
}

func TestLoggingFactory_NewSource(t *testing.T) {
	t.Parallel()

	t.Run("tags sources with a worker number", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.SourceFactory{
			NewSourceFn: func(context.Context) (sift.PageSource, error) {
				return &mock.PageSource{
					NavigateFn: func(context.Context, string, time.Duration) error { return nil },
				}, nil
			},
		}
		f := siftslog.NewLoggingFactory(inner, logger)

		_, err := f.NewSource(context.Background())
		require.NoError(t, err)
		second, err := f.NewSource(context.Background())
		require.NoError(t, err)
		require.NoError(t, second.Navigate(context.Background(), "https://shop.example", 0))

		assert.Contains(t, buf.String(), "worker=2")
	})

	t.Run("logs factory errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.SourceFactory{
			NewSourceFn: func(context.Context) (sift.PageSource, error) {
				return nil, errors.New("browser crashed")
			},
		}

		_, err := siftslog.NewLoggingFactory(inner, logger).NewSource(context.Background())

		require.Error(t, err)
		assert.Contains(t, buf.String(), "browser crashed")
	})
}
