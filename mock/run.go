package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

var (
	_ sift.RunService = (*RunService)(nil)
	_ sift.Exporter   = (*Exporter)(nil)
)

// RunService is a mock implementation of sift.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *sift.Run, rs *sift.ResultSet) error
	FindRunByIDFn func(ctx context.Context, id string) (*sift.Run, error)
	FindRunsFn    func(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error)
	FindRecordsFn func(ctx context.Context, filter sift.RecordFilter) ([]*sift.Record, error)
	DeleteRunFn   func(ctx context.Context, id string) error
}

func (s *RunService) CreateRun(ctx context.Context, run *sift.Run, rs *sift.ResultSet) error {
	return s.CreateRunFn(ctx, run, rs)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*sift.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error) {
	return s.FindRunsFn(ctx, filter)
}

func (s *RunService) FindRecords(ctx context.Context, filter sift.RecordFilter) ([]*sift.Record, error) {
	return s.FindRecordsFn(ctx, filter)
}

func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	return s.DeleteRunFn(ctx, id)
}

// Exporter is a mock implementation of sift.Exporter.
type Exporter struct {
	ExportFn func(ctx context.Context, rs *sift.ResultSet, summary sift.Summary) error
}

func (e *Exporter) Export(ctx context.Context, rs *sift.ResultSet, summary sift.Summary) error {
	return e.ExportFn(ctx, rs, summary)
}
