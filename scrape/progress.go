package scrape

// ProgressEvent reports progress during a pipeline run.
type ProgressEvent struct {
	Type      ProgressType
	Page      int
	RecordID  int
	URL       string
	Completed int
	Total     int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressListing ProgressType = iota
	ProgressRecord
	ProgressEnriched
	ProgressFailed
	ProgressFinished
)

// String returns a short label for the event type.
func (t ProgressType) String() string {
	switch t {
	case ProgressListing:
		return "listing"
	case ProgressRecord:
		return "record"
	case ProgressEnriched:
		return "enriched"
	case ProgressFailed:
		return "failed"
	case ProgressFinished:
		return "finished"
	}
	return "unknown"
}

// ProgressFunc is a callback for reporting pipeline progress.
type ProgressFunc func(event ProgressEvent)

func (f ProgressFunc) emit(e ProgressEvent) {
	if f != nil {
		f(e)
	}
}
