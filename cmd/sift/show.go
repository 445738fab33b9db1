package main

import (
	"fmt"

	"github.com/fwojciec/sift"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		if sift.ErrorCode(err) == sift.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: run %q not found. Use 'sift runs' to see stored runs.\n", c.ID)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	records, err := deps.Runs.FindRecords(deps.Ctx, sift.RecordFilter{RunID: &run.ID, SelectedOnly: c.Selected})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run %s\n", run.ID)
	fmt.Fprintf(deps.Stdout, "Profile: %s  Query: %q\n", run.Profile, run.Query)
	fmt.Fprintf(deps.Stdout, "URL: %s\n", run.URL)
	fmt.Fprintf(deps.Stdout, "Selection: %s  State: %s\n", run.Predicate, run.Stats.State)
	fmt.Fprintf(deps.Stdout, "Created: %s\n\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	if len(records) == 0 {
		fmt.Fprintln(deps.Stdout, "No records.")
		return nil
	}
	printRecords(deps.Stdout, records)

	if !c.Selected {
		var selected []*sift.Record
		for _, r := range records {
			if r.Selected {
				selected = append(selected, r)
			}
		}
		fmt.Fprintln(deps.Stdout)
		printSelection(deps.Stdout, selected, len(records), normalizerFor(deps, run.Profile))
	}

	return nil
}
