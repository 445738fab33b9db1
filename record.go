package sift

import "time"

// Unknown is the sentinel value for a text field no strategy could extract.
const Unknown = "unknown"

// Caps on subordinate lists pulled from a detail page.
const (
	MaxFeatures = 10
	MaxReviews  = 5
)

// EnrichmentState tracks a record's detail-page enrichment.
type EnrichmentState string

const (
	EnrichmentPending  EnrichmentState = "pending"
	EnrichmentFetching EnrichmentState = "fetching"
	EnrichmentEnriched EnrichmentState = "enriched"
	EnrichmentFailed   EnrichmentState = "failed"
)

// Done reports whether enrichment already reached a terminal state.
func (s EnrichmentState) Done() bool {
	return s == EnrichmentEnriched || s == EnrichmentFailed
}

// Record is one normalized listing item.
//
// PriceNum and RatingNum use 0 to mean "not found". Once a record has been
// emitted only Enrichment, EnrichError, Features, Reviews and Selected change.
type Record struct {
	ID            int             `json:"id"`
	Title         string          `json:"title"`
	PriceDisplay  string          `json:"price_display"`
	PriceNum      float64         `json:"price_num"`
	RatingDisplay string          `json:"rating_display"`
	RatingNum     float64         `json:"rating_num"`
	ReviewCount   int             `json:"review_count"`
	URL           string          `json:"url"`
	ImageURL      string          `json:"image_url"`
	Features      []string        `json:"features"`
	Reviews       []string        `json:"reviews"`
	Enrichment    EnrichmentState `json:"enrichment"`
	EnrichError   string          `json:"enrichment_error,omitempty"`
	Selected      bool            `json:"selected"`
	Timestamp     time.Time       `json:"timestamp"`
}

// HasPrice reports whether a price was found.
func (r *Record) HasPrice() bool { return r.PriceNum > 0 }

// HasRating reports whether a rating was found.
func (r *Record) HasRating() bool { return r.RatingNum > 0 }

// PipelineState is the overall state of a pipeline run.
type PipelineState string

const (
	StateInit             PipelineState = "init"
	StateNavigating       PipelineState = "navigating"
	StateListingExtracted PipelineState = "listing-extracted"
	StateEnriching        PipelineState = "enriching"
	StateFiltering        PipelineState = "filtering"
	StateDone             PipelineState = "done"
	StateFailedNavigation PipelineState = "failed-navigation"
)

// Stats holds aggregate diagnostics for a run.
type Stats struct {
	State        PipelineState `json:"state"`
	Pages        int           `json:"pages"`
	Elements     int           `json:"elements"`
	Discarded    int           `json:"discarded"`
	Duplicates   int           `json:"duplicates"`
	Enriched     int           `json:"enriched"`
	EnrichFailed int           `json:"enrich_failed"`
}

// ResultSet is an ordered record list plus the selected subset.
type ResultSet struct {
	Records  []*Record `json:"records"`
	Selected []*Record `json:"selected"`
	Stats    Stats     `json:"stats"`
}

// Select applies pred to the collected records, replacing the selected subset
// and the per-record Selected flags. On a validation error nothing changes.
func (rs *ResultSet) Select(pred Predicate) error {
	selected, err := Filter(rs.Records, pred)
	if err != nil {
		return err
	}
	for _, r := range rs.Records {
		r.Selected = false
	}
	for _, r := range selected {
		r.Selected = true
	}
	rs.Selected = selected
	return nil
}

// SelectedTotal sums the known prices of the selected records.
func (rs *ResultSet) SelectedTotal() float64 {
	var total float64
	for _, r := range rs.Selected {
		if r.HasPrice() {
			total += r.PriceNum
		}
	}
	return total
}

// Summary describes a selection for export.
type Summary struct {
	Total         int       `json:"total_records"`
	SelectedCount int       `json:"selected_count"`
	SelectedTotal float64   `json:"selected_total"`
	Currency      string    `json:"currency,omitempty"`
	Stats         Stats     `json:"stats"`
	Timestamp     time.Time `json:"timestamp"`
}

// Summarize builds a Summary of the result set at time now.
func (rs *ResultSet) Summarize(currency string, now time.Time) Summary {
	return Summary{
		Total:         len(rs.Records),
		SelectedCount: len(rs.Selected),
		SelectedTotal: rs.SelectedTotal(),
		Currency:      currency,
		Stats:         rs.Stats,
		Timestamp:     now,
	}
}
