package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/extract"
)

// Pipeline defaults.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultReadyTimeout      = 15 * time.Second
	DefaultTarget            = 10
)

// Pipeline drives one run: navigate to the listing, collect records across
// pages, optionally enrich them, then apply the selection predicate.
//
// The primary Source is used by the calling goroutine only.
type Pipeline struct {
	Source  sift.PageSource
	Profile *sift.Profile

	// Target is the number of records wanted. Defaults to DefaultTarget.
	Target int

	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration

	// RetryDelays are the listing navigation retry delays.
	// Nil means DefaultRetryDelays.
	RetryDelays []time.Duration

	// Enricher, if set, fetches detail pages for collected records.
	Enricher *Enricher

	// NewURLSet, if set, creates the duplicate-URL filter for a run.
	NewURLSet func() sift.URLSet

	// Now stamps records. Defaults to time.Now.
	Now func() time.Time

	Progress ProgressFunc
}

// Run executes the pipeline against listingURL.
//
// An invalid predicate fails before any navigation and returns a nil result.
// A listing that cannot be loaded or never becomes ready ends the run in
// StateFailedNavigation; the records gathered from earlier pages are
// returned together with the error. Cancellation returns what was gathered
// so far with the context error; when enrichment was requested, records
// not yet enriched are marked Failed.
func (p *Pipeline) Run(ctx context.Context, listingURL string, pred sift.Predicate) (*sift.ResultSet, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	builder, err := extract.NewBuilder(p.Source, p.Profile)
	if err != nil {
		return nil, err
	}
	builder.Now = p.Now

	target := p.Target
	if target <= 0 {
		target = DefaultTarget
	}
	collector := &Collector{Builder: builder, Target: target}
	if p.NewURLSet != nil {
		collector.Seen = p.NewURLSet()
	}

	rs := &sift.ResultSet{
		Records:  []*sift.Record{},
		Selected: []*sift.Record{},
		Stats:    sift.Stats{State: sift.StateInit},
	}
	finish := func() {
		rs.Stats.Elements = collector.Elements()
		rs.Stats.Discarded = builder.Discarded()
		rs.Stats.Duplicates = collector.Duplicates()
	}

	maxPages := p.Profile.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	pageURL := listingURL
	for page := 1; ; page++ {
		rs.Stats.State = sift.StateNavigating
		elements, err := p.loadListing(ctx, pageURL)
		if err != nil {
			finish()
			if ctx.Err() != nil {
				p.abandon(rs, ctx.Err())
				return rs, ctx.Err()
			}
			rs.Stats.State = sift.StateFailedNavigation
			p.Progress.emit(ProgressEvent{Type: ProgressFailed, Page: page, URL: pageURL, Error: err})
			return rs, err
		}
		rs.Stats.Pages++

		records := collector.Collect(ctx, elements)
		rs.Records = append(rs.Records, records...)
		rs.Stats.State = sift.StateListingExtracted
		p.Progress.emit(ProgressEvent{Type: ProgressListing, Page: page, URL: pageURL, Completed: len(rs.Records), Total: target})
		for _, r := range records {
			p.Progress.emit(ProgressEvent{Type: ProgressRecord, Page: page, RecordID: r.ID, URL: r.URL, Completed: r.ID, Total: target})
		}

		if collector.Done() || page >= maxPages || p.Profile.NextPage.Empty() || ctx.Err() != nil {
			break
		}
		next := builder.Resolve(builder.Extractor.Field(ctx, nil, p.Profile.NextPage))
		if next == "" || next == pageURL {
			break
		}
		pageURL = next
	}
	finish()

	if err := ctx.Err(); err != nil {
		p.abandon(rs, err)
		return rs, err
	}

	if p.Enricher != nil && len(rs.Records) > 0 {
		rs.Stats.State = sift.StateEnriching
		stats := p.Enricher.Enrich(ctx, rs.Records, p.Progress)
		rs.Stats.Enriched = stats.Enriched
		rs.Stats.EnrichFailed = stats.Failed
		if err := ctx.Err(); err != nil {
			return rs, err
		}
	}

	rs.Stats.State = sift.StateFiltering
	if err := rs.Select(pred); err != nil {
		return rs, err
	}
	rs.Stats.State = sift.StateDone
	p.Progress.emit(ProgressEvent{Type: ProgressFinished, Completed: len(rs.Records), Total: target})

	return rs, nil
}

// abandon marks records that will not be enriched as Failed with err as
// the reason. It does nothing when enrichment was not requested.
func (p *Pipeline) abandon(rs *sift.ResultSet, err error) {
	if p.Enricher == nil {
		return
	}
	for _, r := range rs.Records {
		if r.Enrichment.Done() {
			continue
		}
		markFailed(r, err.Error())
		rs.Stats.EnrichFailed++
	}
}

// loadListing navigates to url, dismisses consent banners and waits for
// the listing to render, then returns its item elements.
func (p *Pipeline) loadListing(ctx context.Context, url string) ([]sift.Element, error) {
	navTimeout := p.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = DefaultNavigationTimeout
	}
	readyTimeout := p.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	delays := p.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	navigate := func(ctx context.Context) error {
		return p.Source.Navigate(ctx, url, navTimeout)
	}
	if err := Retry(ctx, url, delays, navigate, nil); err != nil {
		return nil, navigationError(url, err)
	}

	p.dismiss(ctx)

	ready := p.Profile.Ready
	if ready == "" {
		ready = p.Profile.Item
	}
	if err := p.Source.WaitFor(ctx, ready, readyTimeout); err != nil {
		return nil, navigationError(url, err)
	}

	elements, err := p.Source.QueryAll(ctx, nil, p.Profile.Item)
	if err != nil {
		return nil, navigationError(url, err)
	}
	return elements, nil
}

// dismiss clicks the first consent button that exists. Misses are ignored.
func (p *Pipeline) dismiss(ctx context.Context) {
	clicker, ok := p.Source.(sift.Clicker)
	if !ok {
		return
	}
	for _, sel := range p.Profile.Dismiss {
		if clicked, err := clicker.Click(ctx, sel); err == nil && clicked {
			return
		}
	}
}

func navigationError(url string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var e *sift.Error
	if !errors.As(err, &e) {
		return sift.Errorf(sift.ENAVIGATION, "listing %s unavailable: %v", url, err)
	}
	if e.Code == sift.ENAVIGATION {
		return err
	}
	return sift.Errorf(sift.ENAVIGATION, "listing %s unavailable: %s", url, e.Message)
}
