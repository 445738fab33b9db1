package sift

import (
	"context"
	"time"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Query     string    `json:"query"`
	URL       string    `json:"url"`
	Predicate string    `json:"predicate"`
	Stats     Stats     `json:"stats"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate returns an error if the run contains invalid fields.
func (r *Run) Validate() error {
	if r.Profile == "" {
		return Errorf(EINVALID, "run profile required")
	}
	if r.URL == "" {
		return Errorf(EINVALID, "run URL required")
	}
	return nil
}

// RunService represents a service for storing runs and their records.
type RunService interface {
	// CreateRun stores the run together with every record of rs.
	CreateRun(ctx context.Context, run *Run, rs *ResultSet) error

	// FindRunByID retrieves a run by ID.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindRuns retrieves runs matching the filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// FindRecords retrieves stored records matching the filter.
	FindRecords(ctx context.Context, filter RecordFilter) ([]*Record, error)

	// DeleteRun permanently removes a run and its records.
	// Returns ENOTFOUND if the run does not exist.
	DeleteRun(ctx context.Context, id string) error
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	ID      *string `json:"id"`
	Profile *string `json:"profile"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RecordFilter represents a filter for FindRecords.
// Fingerprint matches the same listing across runs.
type RecordFilter struct {
	RunID        *string `json:"runId"`
	Fingerprint  *string `json:"fingerprint"`
	SelectedOnly bool    `json:"selectedOnly"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Exporter writes a result set to durable output.
type Exporter interface {
	Export(ctx context.Context, rs *ResultSet, summary Summary) error
}
