package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/scrape"
)

const maxTitleRunes = 60

// printRecords writes one line per record. Selected records are starred.
func printRecords(w io.Writer, records []*sift.Record) {
	for _, r := range records {
		mark := " "
		if r.Selected {
			mark = "*"
		}
		rating := "-"
		if r.HasRating() {
			rating = strconv.FormatFloat(r.RatingNum, 'f', 1, 64)
		}
		fmt.Fprintf(w, "%s%3d  %-14s  %4s  %6d  %s\n", mark, r.ID, r.PriceDisplay, rating, r.ReviewCount, truncate(r.Title, maxTitleRunes))
		switch r.Enrichment {
		case sift.EnrichmentEnriched:
			fmt.Fprintf(w, "       %d features, %d reviews\n", len(r.Features), len(r.Reviews))
		case sift.EnrichmentFailed:
			fmt.Fprintf(w, "       enrichment failed: %s\n", r.EnrichError)
		}
	}
}

// printSelection writes the size and known-price total of a selection.
func printSelection(w io.Writer, selected []*sift.Record, total int, n *sift.Normalizer) {
	if len(selected) == 0 {
		fmt.Fprintf(w, "No records selected out of %d.\n", total)
		return
	}
	var sum float64
	for _, r := range selected {
		if r.HasPrice() {
			sum += r.PriceNum
		}
	}
	fmt.Fprintf(w, "Selected %d of %d records. Total: %s\n", len(selected), total, n.FormatPrice(sum))
}

// progressPrinter reports pages and enrichment outcomes on w.
func progressPrinter(w io.Writer) scrape.ProgressFunc {
	return func(e scrape.ProgressEvent) {
		switch e.Type {
		case scrape.ProgressListing:
			fmt.Fprintf(w, "page %d: %d/%d records\n", e.Page, e.Completed, e.Total)
		case scrape.ProgressEnriched:
			fmt.Fprintf(w, "[%d/%d] enriched %d\n", e.Completed, e.Total, e.RecordID)
		case scrape.ProgressFailed:
			if e.RecordID > 0 {
				fmt.Fprintf(w, "[%d/%d] failed %d: %s\n", e.Completed, e.Total, e.RecordID, errorText(e.Error))
			} else {
				fmt.Fprintf(w, "page %d failed: %s\n", e.Page, errorText(e.Error))
			}
		}
	}
}

// normalizerFor formats prices like the named profile, falling back to
// plain English numbers when the profile is gone.
func normalizerFor(deps *Dependencies, name string) *sift.Normalizer {
	if deps.Profiles != nil {
		if p, err := deps.Profiles.Get(name); err == nil {
			if n, err := sift.NewNormalizer(p.Locale, p.Currency); err == nil {
				return n
			}
		}
	}
	return &sift.Normalizer{}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	var e *sift.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
