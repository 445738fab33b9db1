package main

import (
	"fmt"
)

// Run executes the profiles command.
func (c *ProfilesCmd) Run(deps *Dependencies) error {
	profiles := deps.Profiles.List()
	if len(profiles) == 0 {
		fmt.Fprintln(deps.Stdout, "No profiles found. Add YAML profiles to $SIFT_PROFILE_DIR.")
		return nil
	}

	for _, p := range profiles {
		detail := ""
		if !p.Detail.Empty() {
			detail = "  enrich"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s%s\n", p.Name, p.Locale, p.Currency, p.SearchURL, detail)
	}

	return nil
}
