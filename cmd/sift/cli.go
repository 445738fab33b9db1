package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/sqlite"
	"github.com/fwojciec/sift/yaml"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	DB       *sqlite.DB
	Runs     sift.RunService
	Profiles *yaml.Registry
	Sources  sift.SourceFactory
	Fetcher  sift.Fetcher

	// NewExporter returns the exporter writing the named export under dir.
	// Defaults to a JSON file exporter.
	NewExporter func(dir, name string) sift.Exporter

	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log every page operation"`

	Scrape   ScrapeCmd   `cmd:"" help:"Collect records from a listing search"`
	Runs     RunsCmd     `cmd:"" help:"List stored runs"`
	Show     ShowCmd     `cmd:"" help:"Show the records of a stored run"`
	History  HistoryCmd  `cmd:"" help:"Show how a listing changed across runs"`
	Delete   DeleteCmd   `cmd:"" help:"Delete a stored run and its records"`
	Profiles ProfilesCmd `cmd:"" help:"List extraction profiles"`
	Detect   DetectCmd   `cmd:"" help:"Find the profile that matches a listing page"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	Profile  string  `arg:"" help:"Profile name (see 'sift profiles')"`
	Query    string  `arg:"" help:"Search terms"`
	Target   int     `short:"n" default:"10" help:"Number of records to collect"`
	Select   string  `short:"s" default:"all" help:"Selection: all, best, cheapest, ids such as 1,3,5, or range:MIN-MAX"`
	Enrich   bool    `short:"e" help:"Fetch detail pages for features and reviews"`
	Static   bool    `help:"Load pages over plain HTTP instead of a headless browser"`
	Workers  int     `short:"w" default:"3" help:"Concurrent detail page workers"`
	RPS      float64 `default:"1" help:"Detail page requests per second per domain"`
	Retries  int     `default:"3" help:"Navigation retries with exponential backoff"`
	MaxPages int     `help:"Override the profile's listing page limit"`
	Dedupe   bool    `default:"true" negatable:"" help:"Skip listings already collected in this run"`
	Out      string  `short:"o" help:"Directory to export records, selection and summary to"`
	NoSave   bool    `help:"Do not store the run"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Profile string `short:"p" help:"Only runs of this profile"`
	Limit   int    `short:"l" default:"20" help:"Maximum runs to list"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID       string `arg:"" help:"Run ID"`
	Selected bool   `help:"Only show selected records"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Listing string `arg:"" help:"Listing URL or record fingerprint"`
	Limit   int    `short:"l" default:"50" help:"Maximum observations to show"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID    string `arg:"" help:"Run ID"`
	Force bool   `help:"Confirm deletion"`
}

// ProfilesCmd is the "profiles" subcommand.
type ProfilesCmd struct{}

// DetectCmd is the "detect" subcommand.
type DetectCmd struct {
	URL     string `arg:"" help:"Listing page URL"`
	Browser bool   `help:"Render the page in a headless browser"`
}
