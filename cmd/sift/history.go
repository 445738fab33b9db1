package main

import (
	"fmt"
	"regexp"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/sqlite"
)

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	fingerprint := c.Listing
	if !fingerprintPattern.MatchString(fingerprint) {
		fingerprint = sqlite.Fingerprint(&sift.Record{URL: c.Listing})
	}

	records, err := deps.Runs.FindRecords(deps.Ctx, sift.RecordFilter{Fingerprint: &fingerprint, Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(deps.Stdout, "No stored records for %s.\n", c.Listing)
		return nil
	}

	fmt.Fprintf(deps.Stdout, "%s\n", truncate(records[len(records)-1].Title, maxTitleRunes))
	for _, r := range records {
		rating := "-"
		if r.HasRating() {
			rating = fmt.Sprintf("%.1f", r.RatingNum)
		}
		fmt.Fprintf(deps.Stdout, "%s  %-14s  %4s  %6d reviews\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.PriceDisplay, rating, r.ReviewCount)
	}

	return nil
}
