package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/bloom"
	"github.com/fwojciec/sift/fs"
	"github.com/fwojciec/sift/scrape"
)

// Run executes the scrape command.
//
// A navigation failure after some pages were read still prints, stores and
// exports the partial result before the error is returned.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	profile, err := deps.Profiles.Get(c.Profile)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s. Use 'sift profiles' to see available profiles.\n", sift.ErrorMessage(err))
		return err
	}

	pred, err := sift.ParsePredicate(c.Select)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	listingURL, err := profile.ListingURL(c.Query)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	p := *profile
	if c.MaxPages > 0 {
		p.MaxPages = c.MaxPages
	}
	if c.Enrich && p.Detail.Empty() {
		fmt.Fprintf(deps.Stderr, "error: profile %q has no detail page selectors\n", p.Name)
		return sift.Errorf(sift.EINVALID, "profile %q has no detail page selectors", p.Name)
	}

	normalizer, err := sift.NewNormalizer(p.Locale, p.Currency)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	src, err := deps.Sources.NewSource(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}
	defer src.Close()

	pipeline := &scrape.Pipeline{
		Source:      src,
		Profile:     &p,
		Target:      c.Target,
		RetryDelays: retryDelays(c.Retries),
		Now:         deps.Now,
		Progress:    progressPrinter(deps.Stderr),
	}
	if c.Dedupe {
		pipeline.NewURLSet = bloom.Factory(uint(max(c.Target, 1) * max(p.MaxPages, 1) * 4))
	}
	if c.Enrich {
		pipeline.Enricher = &scrape.Enricher{
			Factory:     deps.Sources,
			Detail:      p.Detail,
			Workers:     c.Workers,
			RetryDelays: retryDelays(c.Retries),
		}
		if c.RPS > 0 {
			pipeline.Enricher.RateLimiter = scrape.NewDomainLimiter(c.RPS)
		}
	}

	rs, runErr := pipeline.Run(deps.Ctx, listingURL, pred)
	if rs == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(runErr))
		return runErr
	}
	if runErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s (keeping %d records)\n", errorText(runErr), len(rs.Records))
	}
	// Partial results are stored even after an interrupt.
	ctx := context.WithoutCancel(deps.Ctx)

	if len(rs.Records) == 0 {
		fmt.Fprintf(deps.Stdout, "No records found for %q.\n", c.Query)
	} else {
		printRecords(deps.Stdout, rs.Records)
		fmt.Fprintln(deps.Stdout)
		printSelection(deps.Stdout, rs.Selected, len(rs.Records), normalizer)
	}
	fmt.Fprintf(deps.Stdout, "Pages: %d  Elements: %d  Discarded: %d  Duplicates: %d\n",
		rs.Stats.Pages, rs.Stats.Elements, rs.Stats.Discarded, rs.Stats.Duplicates)
	if c.Enrich {
		fmt.Fprintf(deps.Stdout, "Enriched: %d  Failed: %d\n", rs.Stats.Enriched, rs.Stats.EnrichFailed)
	}

	name := fmt.Sprintf("%s-%s", p.Name, deps.now().UTC().Format("20060102-150405"))
	if !c.NoSave {
		run := &sift.Run{
			Profile:   p.Name,
			Query:     c.Query,
			URL:       listingURL,
			Predicate: pred.String(),
		}
		if err := deps.Runs.CreateRun(ctx, run, rs); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
			return err
		}
		name = run.ID
		fmt.Fprintf(deps.Stdout, "Saved run %s\n", run.ID)
	}

	if c.Out != "" {
		newExporter := deps.NewExporter
		if newExporter == nil {
			newExporter = func(dir, name string) sift.Exporter { return fs.NewExporter(dir, name) }
		}
		summary := rs.Summarize(p.Currency, deps.now())
		if err := newExporter(c.Out, name).Export(ctx, rs, summary); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Exported to %s\n", filepath.Join(c.Out, name))
	}

	return runErr
}

// retryDelays returns n exponential backoff delays starting at one second.
func retryDelays(n int) []time.Duration {
	delays := []time.Duration{}
	d := time.Second
	for range n {
		delays = append(delays, d)
		d *= 2
	}
	return delays
}
