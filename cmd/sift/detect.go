package main

import (
	"fmt"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/goquery"
)

// Run executes the detect command.
func (c *DetectCmd) Run(deps *Dependencies) error {
	html, err := deps.Fetcher.Fetch(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	detector := goquery.NewDetector(deps.Profiles.List()...)
	p, ok := detector.Detect(html)
	if !ok {
		fmt.Fprintf(deps.Stderr, "error: no profile matches %s\n", c.URL)
		return sift.Errorf(sift.ENOTFOUND, "no profile matches %s", c.URL)
	}

	fmt.Fprintf(deps.Stdout, "%s\n", p.Name)
	return nil
}
