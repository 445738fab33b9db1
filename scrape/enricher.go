package scrape

import (
	"context"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/extract"
	"golang.org/x/sync/errgroup"
)

// Enricher defaults.
const (
	DefaultWorkers       = 3
	DefaultDetailTimeout = 45 * time.Second
)

// Enricher fetches detail pages and attaches subordinate lists to records.
//
// Work is spread over a bounded pool; each worker owns its own PageSource
// from Factory. Workers report back over a channel and only the goroutine
// calling Enrich mutates records, joining results by record id.
type Enricher struct {
	Factory sift.SourceFactory
	Detail  sift.DetailSpec

	// Workers bounds concurrent detail fetches. Defaults to DefaultWorkers.
	Workers int
	// Timeout bounds each detail fetch including retries and waits.
	Timeout time.Duration
	// RateLimiter, if set, spaces out requests per registrable domain.
	RateLimiter sift.DomainLimiter
	// RetryDelays are the navigation retry delays. Nil means no retries.
	RetryDelays []time.Duration
}

// EnrichStats counts enrichment outcomes of one Enrich call.
type EnrichStats struct {
	Enriched int
	Failed   int
	Skipped  int
}

type enrichJob struct {
	id  int
	url string
}

type enrichResult struct {
	id       int
	url      string
	features []string
	reviews  []string
	err      error
}

// Enrich moves every pending record to Enriched or Failed. Records already
// in a terminal state are left untouched. A record without a detail URL
// fails immediately. Fetch errors never propagate; they mark the record.
// When ctx is done, in-flight and undispatched records are marked Failed.
func (e *Enricher) Enrich(ctx context.Context, records []*sift.Record, progress ProgressFunc) EnrichStats {
	var stats EnrichStats
	byID := make(map[int]*sift.Record, len(records))
	var jobs []enrichJob

	for _, r := range records {
		if r.Enrichment.Done() {
			stats.Skipped++
			continue
		}
		if r.URL == "" {
			markFailed(r, "no detail URL")
			stats.Failed++
			continue
		}
		byID[r.ID] = r
		jobs = append(jobs, enrichJob{id: r.ID, url: r.URL})
	}
	if len(jobs) == 0 {
		return stats
	}

	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, len(jobs))

	jobCh := make(chan enrichJob)
	resultCh := make(chan enrichResult)

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			return e.work(ctx, jobCh, resultCh)
		})
	}

	apply := func(res enrichResult) {
		r := byID[res.id]
		if res.err != nil {
			markFailed(r, res.err.Error())
			stats.Failed++
			progress.emit(ProgressEvent{Type: ProgressFailed, RecordID: r.ID, URL: r.URL, Completed: stats.Enriched + stats.Failed, Total: len(records), Error: res.err})
			return
		}
		r.Features = res.features
		r.Reviews = res.reviews
		r.Enrichment = sift.EnrichmentEnriched
		r.EnrichError = ""
		stats.Enriched++
		progress.emit(ProgressEvent{Type: ProgressEnriched, RecordID: r.ID, URL: r.URL, Completed: stats.Enriched + stats.Failed, Total: len(records)})
	}

	// Coordinator loop
	next := 0
	inFlight := 0
	done := ctx.Done()
	cancelled := false
	for (!cancelled && next < len(jobs)) || inFlight > 0 {
		var send chan<- enrichJob
		var job enrichJob
		if !cancelled && next < len(jobs) {
			send = jobCh
			job = jobs[next]
		}

		select {
		case send <- job:
			byID[job.id].Enrichment = sift.EnrichmentFetching
			next++
			inFlight++
		case res := <-resultCh:
			inFlight--
			apply(res)
		case <-done:
			cancelled = true
			done = nil
		}
	}
	close(jobCh)

	// Jobs are only left undispatched on cancellation, which every worker
	// reports through Wait.
	stopped := g.Wait()
	for _, job := range jobs[next:] {
		apply(enrichResult{id: job.id, url: job.url, err: stopped})
	}

	return stats
}

// work runs one worker until jobCh is closed and then returns the context
// error, if any. A worker that cannot obtain a page source fails every job
// it receives.
func (e *Enricher) work(ctx context.Context, jobCh <-chan enrichJob, resultCh chan<- enrichResult) error {
	src, err := e.Factory.NewSource(ctx)
	if err == nil {
		defer src.Close()
	}
	for job := range jobCh {
		res := enrichResult{id: job.id, url: job.url, err: err}
		if err == nil {
			res = e.fetch(ctx, src, job)
		}
		resultCh <- res
	}
	return ctx.Err()
}

func (e *Enricher) fetch(ctx context.Context, src sift.PageSource, job enrichJob) enrichResult {
	res := enrichResult{id: job.id, url: job.url}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultDetailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if e.RateLimiter != nil {
		if err := e.RateLimiter.Wait(ctx, DomainKey(job.url)); err != nil {
			res.err = err
			return res
		}
	}

	navigate := func(ctx context.Context) error {
		return src.Navigate(ctx, job.url, timeout)
	}
	if err := Retry(ctx, job.url, e.RetryDelays, navigate, nil); err != nil {
		res.err = err
		return res
	}
	if e.Detail.Ready != "" {
		if err := src.WaitFor(ctx, e.Detail.Ready, timeout); err != nil {
			res.err = err
			return res
		}
	}

	ex := extract.NewExtractor(src)
	res.features = ex.List(ctx, nil, capped(e.Detail.Features, sift.MaxFeatures))
	res.reviews = ex.List(ctx, nil, capped(e.Detail.Reviews, sift.MaxReviews))
	if err := ctx.Err(); err != nil {
		res.err = err
	}
	return res
}

func capped(spec sift.ListSpec, max int) sift.ListSpec {
	if spec.Limit <= 0 || spec.Limit > max {
		spec.Limit = max
	}
	return spec
}

func markFailed(r *sift.Record, reason string) {
	r.Enrichment = sift.EnrichmentFailed
	r.EnrichError = reason
	r.Features = []string{}
	r.Reviews = []string{}
}
