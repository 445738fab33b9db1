// Package fs provides file-based export of result sets.
package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fwojciec/sift"
)

// Export file names.
const (
	RecordsFile  = "records.json"
	SelectedFile = "selected.json"
	SummaryFile  = "summary.json"
)

// Ensure Exporter implements sift.Exporter at compile time.
var _ sift.Exporter = (*Exporter)(nil)

// Exporter writes a result set as JSON files with atomic update semantics.
// Files are written to baseDir/name.tmp and the directory is then renamed
// to baseDir/name, replacing a previous export.
type Exporter struct {
	baseDir string
	name    string
}

// NewExporter creates a new Exporter.
func NewExporter(baseDir, name string) *Exporter {
	return &Exporter{
		baseDir: baseDir,
		name:    name,
	}
}

// Dir returns the directory a successful export ends up in.
func (e *Exporter) Dir() string {
	return filepath.Join(e.baseDir, e.name)
}

func (e *Exporter) tempDir() string {
	return filepath.Join(e.baseDir, e.name+".tmp")
}

// Export writes records, selected records and summary. On failure the
// previous export is left in place.
func (e *Exporter) Export(ctx context.Context, rs *sift.ResultSet, summary sift.Summary) (err error) {
	tmp := e.tempDir()
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	files := []struct {
		name string
		v    any
	}{
		{RecordsFile, nonNil(rs.Records)},
		{SelectedFile, nonNil(rs.Selected)},
		{SummaryFile, summary},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(tmp, f.name), f.v); err != nil {
			return err
		}
	}

	return e.commit()
}

// commit swaps the temp directory into place. The previous export is moved
// aside first and restored if the swap fails.
func (e *Exporter) commit() error {
	backup := filepath.Join(e.baseDir, e.name+".old")
	if err := os.RemoveAll(backup); err != nil {
		return err
	}
	hadPrevious := true
	if err := os.Rename(e.Dir(), backup); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		hadPrevious = false
	}
	if err := os.Rename(e.tempDir(), e.Dir()); err != nil {
		if hadPrevious {
			_ = os.Rename(backup, e.Dir())
		}
		return err
	}
	if hadPrevious {
		_ = os.RemoveAll(backup)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sift.Errorf(sift.EINTERNAL, "encoding %s: %v", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

func nonNil(records []*sift.Record) []*sift.Record {
	if records == nil {
		return []*sift.Record{}
	}
	return records
}
