// Package csvimport parses time entries from CSV files into the canonical
// write path. Rows carry no stable vendor identity, so they always insert as
// new entries.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"timesync/internal/domain"
)

// RowError ties a validation failure to its 1-based line number.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Parse reads CSV rows into canonical entries. The first row must be the
// header "date,hours,project,description". Invalid rows are collected as
// RowErrors; valid rows are still returned, so the caller can land them best
// effort. The returned error covers only unreadable input.
func Parse(r io.Reader) ([]domain.Entry, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if !isHeader(header) {
		return nil, nil, fmt.Errorf("unexpected header %q, want date,hours,project,description", strings.Join(header, ","))
	}

	var (
		entries []domain.Entry
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		e, err := parseRow(rec)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		entries = append(entries, e)
	}
	return entries, rowErrs, nil
}

func isHeader(rec []string) bool {
	want := []string{"date", "hours", "project", "description"}
	if len(rec) != len(want) {
		return false
	}
	for i, w := range want {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), w) {
			return false
		}
	}
	return true
}

func parseRow(rec []string) (domain.Entry, error) {
	date, err := parseDate(strings.TrimSpace(rec[0]))
	if err != nil {
		return domain.Entry{}, err
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("invalid hours %q", rec[1])
	}
	if hours < 0 {
		return domain.Entry{}, fmt.Errorf("hours must be non-negative, got %v", hours)
	}
	return domain.Entry{
		Source:        domain.SourceCSV,
		Date:          date,
		DurationHours: hours,
		Project:       strings.TrimSpace(rec[2]),
		Description:   strings.TrimSpace(rec[3]),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want RFC3339 or YYYY-MM-DD", s)
}
