package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/sift"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sift.RunService = (*RunService)(nil)

// RunService implements sift.RunService using SQLite.
type RunService struct {
	db *DB

	// Now stamps new runs. Defaults to time.Now.
	Now func() time.Time
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores run and every record of rs in one transaction.
// The run's ID, CreatedAt and Stats are set from the stored values.
func (s *RunService) CreateRun(ctx context.Context, run *sift.Run, rs *sift.ResultSet) error {
	if err := run.Validate(); err != nil {
		return err
	}
	if rs == nil {
		rs = &sift.ResultSet{}
	}

	run.ID = uuid.New().String()
	run.CreatedAt = s.now().UTC()
	run.Stats = rs.Stats

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, profile, query, url, predicate, stats, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Profile, run.Query, run.URL, run.Predicate, string(stats), formatTime(run.CreatedAt)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, position, fingerprint, title, price_display, price_num,
			rating_display, rating_num, review_count, url, image_url, features, reviews,
			enrichment, enrichment_error, selected, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rs.Records {
		features, err := encodeList(r.Features)
		if err != nil {
			return err
		}
		reviews, err := encodeList(r.Reviews)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, r.ID, Fingerprint(r), r.Title, r.PriceDisplay, r.PriceNum,
			r.RatingDisplay, r.RatingNum, r.ReviewCount, r.URL, r.ImageURL, features, reviews,
			string(r.Enrichment), r.EnrichError, r.Selected, formatTime(r.Timestamp),
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// FindRunByID retrieves a run by ID.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*sift.Run, error) {
	runs, err := s.FindRuns(ctx, sift.RunFilter{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, sift.Errorf(sift.ENOTFOUND, "run not found")
	}
	return runs[0], nil
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunService) FindRuns(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, profile, query, url, predicate, stats, created_at FROM runs WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Profile != nil {
		query.WriteString(" AND profile = ?")
		args = append(args, *filter.Profile)
	}

	query.WriteString(" ORDER BY created_at DESC, id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*sift.Run{}
	for rows.Next() {
		var run sift.Run
		var stats, createdAt string

		if err := rows.Scan(&run.ID, &run.Profile, &run.Query, &run.URL, &run.Predicate, &stats, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode stats: %w", err)
		}
		if run.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// FindRecords retrieves stored records ordered by run creation, then id.
func (s *RunService) FindRecords(ctx context.Context, filter sift.RecordFilter) ([]*sift.Record, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT r.position, r.title, r.price_display, r.price_num, r.rating_display,
		r.rating_num, r.review_count, r.url, r.image_url, r.features, r.reviews,
		r.enrichment, r.enrichment_error, r.selected, r.extracted_at
		FROM records r JOIN runs ON runs.id = r.run_id WHERE 1=1`)

	if filter.RunID != nil {
		query.WriteString(" AND r.run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.Fingerprint != nil {
		query.WriteString(" AND r.fingerprint = ?")
		args = append(args, *filter.Fingerprint)
	}
	if filter.SelectedOnly {
		query.WriteString(" AND r.selected = 1")
	}

	query.WriteString(" ORDER BY runs.created_at, r.run_id, r.position")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*sift.Record{}
	for rows.Next() {
		var r sift.Record
		var features, reviews, enrichment, extractedAt string

		if err := rows.Scan(&r.ID, &r.Title, &r.PriceDisplay, &r.PriceNum, &r.RatingDisplay,
			&r.RatingNum, &r.ReviewCount, &r.URL, &r.ImageURL, &features, &reviews,
			&enrichment, &r.EnrichError, &r.Selected, &extractedAt); err != nil {
			return nil, err
		}
		if r.Features, err = decodeList(features); err != nil {
			return nil, err
		}
		if r.Reviews, err = decodeList(reviews); err != nil {
			return nil, err
		}
		r.Enrichment = sift.EnrichmentState(enrichment)
		if r.Timestamp, err = parseRFC3339(extractedAt, "extracted_at"); err != nil {
			return nil, err
		}

		records = append(records, &r)
	}

	return records, rows.Err()
}

// DeleteRun permanently removes a run and, by cascade, its records.
func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sift.Errorf(sift.ENOTFOUND, "run not found")
	}

	return nil
}

func (s *RunService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	items := []string{}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}
