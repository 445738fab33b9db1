package main

import (
	"fmt"

	"github.com/fwojciec/sift"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	filter := sift.RunFilter{Limit: c.Limit}
	if c.Profile != "" {
		filter.Profile = &c.Profile
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs found. Use 'sift scrape' to create one.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %q  %s  %d pages\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Profile, r.Query, r.Stats.State, r.Stats.Pages)
	}

	return nil
}
