// Package rod provides a rendering sift.PageSource backed by headless
// Chrome through go-rod.
package rod

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/sift"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxPages is the default number of pages before browser recycling.
const DefaultMaxPages = 75

// Ensure BrowserManager implements sift.SourceFactory at compile time.
var _ sift.SourceFactory = (*BrowserManager)(nil)

// BrowserManager owns one Chrome process and hands out tabs as page
// sources. Chrome accumulates memory over a long run, so the browser is
// relaunched once maxPages tabs were opened and none is still open.
//
// BrowserManager is safe for concurrent use.
type BrowserManager struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	pageCount int64
	maxPages  int64
	open      int
	headless  bool
	lang      string
	userAgent string
	mu        sync.Mutex
	closed    atomic.Bool
}

// ManagerOption configures a BrowserManager.
type ManagerOption func(*BrowserManager)

// WithMaxPages sets the maximum number of pages before the browser is recycled.
// Defaults to 75 if not specified.
func WithMaxPages(n int64) ManagerOption {
	return func(bm *BrowserManager) {
		bm.maxPages = n
	}
}

// WithHeadless controls whether Chrome runs without a window. Defaults to true.
func WithHeadless(headless bool) ManagerOption {
	return func(bm *BrowserManager) {
		bm.headless = headless
	}
}

// WithLanguage sets the browser UI and Accept-Language locale, e.g. "es-ES".
func WithLanguage(lang string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.lang = lang
	}
}

// WithUserAgent overrides the user agent of every tab.
func WithUserAgent(ua string) ManagerOption {
	return func(bm *BrowserManager) {
		bm.userAgent = ua
	}
}

// NewBrowserManager creates a new BrowserManager that launches Chrome.
// Close must be called when the BrowserManager is no longer needed.
func NewBrowserManager(opts ...ManagerOption) (*BrowserManager, error) {
	bm := &BrowserManager{
		maxPages: DefaultMaxPages,
		headless: true,
	}
	for _, opt := range opts {
		opt(bm)
	}

	if err := bm.launchBrowser(); err != nil {
		return nil, err
	}

	return bm, nil
}

// NewSource opens a new tab. The returned source must be closed.
func (bm *BrowserManager) NewSource(ctx context.Context) (sift.PageSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bm.closed.Load() {
		return nil, sift.Errorf(sift.EINVALID, "browser manager is closed")
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.open == 0 && atomic.LoadInt64(&bm.pageCount) >= bm.maxPages {
		bm.recycleBrowser()
	}
	if bm.browser == nil {
		return nil, sift.Errorf(sift.EINTERNAL, "no browser available")
	}

	page, err := bm.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	if bm.userAgent != "" || bm.lang != "" {
		if err := bm.override(page); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	bm.open++
	atomic.AddInt64(&bm.pageCount, 1)
	return &Source{page: page, release: bm.release}, nil
}

// override applies the configured user agent and Accept-Language to page.
// Without a configured user agent the browser's own is kept.
// Must be called with mu held.
func (bm *BrowserManager) override(page *rod.Page) error {
	ua := bm.userAgent
	if ua == "" {
		v, err := proto.BrowserGetVersion{}.Call(bm.browser)
		if err != nil {
			return err
		}
		ua = v.UserAgent
	}
	return page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua, AcceptLanguage: bm.lang})
}

func (bm *BrowserManager) release() {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.open > 0 {
		bm.open--
	}
}

// PageCount returns the number of tabs opened since the last launch.
func (bm *BrowserManager) PageCount() int64 {
	return atomic.LoadInt64(&bm.pageCount)
}

// Close releases browser resources. Close is safe to call multiple times.
func (bm *BrowserManager) Close() error {
	if !bm.closed.CompareAndSwap(false, true) {
		return nil
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	return bm.closeBrowser()
}

// launch starts Chrome with flags that keep background tabs rendering
// and hide the automation banner.
func (bm *BrowserManager) launch() (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("disable-blink-features", "AutomationControlled").
		Leakless(true).
		Headless(bm.headless)
	if bm.lang != "" {
		l = l.Set("lang", bm.lang)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return b, l, nil
}

func (bm *BrowserManager) launchBrowser() error {
	b, l, err := bm.launch()
	if err != nil {
		return err
	}
	bm.browser, bm.launcher = b, l
	return nil
}

// closeBrowser must be called with mu held.
func (bm *BrowserManager) closeBrowser() error {
	err := shutdown(bm.browser, bm.launcher)
	bm.browser, bm.launcher = nil, nil
	return err
}

// recycleBrowser swaps in a fresh Chrome. A failed launch keeps the
// current one. Must be called with mu held.
func (bm *BrowserManager) recycleBrowser() {
	b, l, err := bm.launch()
	if err != nil {
		return
	}
	_ = shutdown(bm.browser, bm.launcher)
	bm.browser, bm.launcher = b, l
	atomic.StoreInt64(&bm.pageCount, 0)
}

func shutdown(b *rod.Browser, l *launcher.Launcher) error {
	var err error
	if b != nil {
		err = b.Close()
	}
	if l != nil {
		l.Kill()
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (bm *BrowserManager) LauncherPID() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.launcher == nil {
		return 0
	}
	return bm.launcher.PID()
}
