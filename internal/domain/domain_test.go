package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	win := DefaultWindow(now)

	assert.Equal(t, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), win.Start, "start is 3 months back at midnight")
	assert.Equal(t, time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC), win.End, "end covers all of tomorrow")
	assert.False(t, win.Custom)
}

func TestCustomWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	win := CustomWindow(start, end)

	assert.True(t, win.Custom)
	assert.Equal(t, start, win.Start)
	assert.Equal(t, end, win.End)
}

func TestParseBatchPolicy(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want BatchPolicy
	}{
		{"", BestEffort},
		{"best_effort", BestEffort},
		{"all_or_nothing", AllOrNothing},
	} {
		got, err := ParseBatchPolicy(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseBatchPolicy("yolo")
	assert.Error(t, err)
}

func TestCollisionError(t *testing.T) {
	err := &CollisionError{
		Source:     SourceToggl,
		ExternalID: "555",
		Date:       time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	assert.Contains(t, err.Error(), `"555"`, "collision names the offending external id")
	assert.Contains(t, err.Error(), "2026-01-10")

	wrapped := fmt.Errorf("saving batch: %w", err)
	assert.True(t, IsCollision(wrapped))
	assert.False(t, IsCollision(ErrNoSettledDuration))
}

func TestReportAdd(t *testing.T) {
	var r SyncReport
	r.Add(ProviderOutcome{Provider: SourceToggl, Imported: 3, Skipped: 1})
	r.Add(ProviderOutcome{Provider: SourceTempo, Imported: 2})

	assert.Equal(t, 5, r.Imported)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.Providers, 2)
}
