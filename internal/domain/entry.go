package domain

import "time"

// Source identifies where a canonical entry originated. New sources can be
// added without touching existing providers.
type Source string

const (
	SourceToggl  Source = "toggl"
	SourceTempo  Source = "tempo"
	SourceManual Source = "manual"
	SourceCSV    Source = "csv"
)

// Entry is the canonical time-tracking record, regardless of origin.
// For every non-nil ExternalID the pair (Source, ExternalID) is unique across
// the whole store; the storage layer enforces this, not application locks.
type Entry struct {
	ID            int64     `json:"id"`
	Source        Source    `json:"source"`
	ExternalID    *string   `json:"external_id,omitempty"`
	Date          time.Time `json:"date"`
	DurationHours float64   `json:"duration_hours"`
	Project       string    `json:"project"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// Normalized is the result of mapping one raw vendor record into the
// canonical shape. UsedFallback reports that a documented fallback value was
// substituted for a missing vendor field; it is diagnostic only and never
// affects control flow.
type Normalized struct {
	Entry        Entry
	UsedFallback bool
}

// Window is a half-open fetch interval [Start, End). Custom marks a
// caller-supplied range, which is never served from or written to the
// response cache.
type Window struct {
	Start  time.Time
	End    time.Time
	Custom bool
}

// DefaultWindow is the window used when the caller supplies no range:
// the last 3 months through the end of tomorrow, in UTC.
func DefaultWindow(now time.Time) Window {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: midnight.AddDate(0, -3, 0),
		End:   midnight.AddDate(0, 0, 2),
	}
}

// CustomWindow builds a caller-supplied range.
func CustomWindow(start, end time.Time) Window {
	return Window{Start: start.UTC(), End: end.UTC(), Custom: true}
}
