package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesync/internal/domain"
)

func TestParseValidRows(t *testing.T) {
	in := strings.Join([]string{
		"date,hours,project,description",
		"2026-01-10,1.5,PRJ-1,standup and review",
		"2026-01-11T09:00:00Z,2,PRJ-2,pairing",
	}, "\n")

	entries, rowErrs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.SourceCSV, entries[0].Source)
	assert.Nil(t, entries[0].ExternalID, "csv rows have no stable vendor identity")
	assert.Equal(t, 1.5, entries[0].DurationHours)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), entries[0].Date)
	assert.Equal(t, time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC), entries[1].Date)
}

func TestParseCollectsRowErrorsAndKeepsValidRows(t *testing.T) {
	in := strings.Join([]string{
		"date,hours,project,description",
		"2026-01-10,1.5,PRJ-1,ok",
		"not-a-date,1,PRJ-1,bad date",
		"2026-01-12,-2,PRJ-1,negative hours",
		"2026-01-13,0.5,PRJ-1,ok too",
	}, "\n")

	entries, rowErrs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "valid rows still land")
	require.Len(t, rowErrs, 2)
	assert.Equal(t, 3, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Error(), "not-a-date")
	assert.Equal(t, 4, rowErrs[1].Line)
}

func TestParseRejectsWrongHeader(t *testing.T) {
	_, _, err := Parse(strings.NewReader("when,how_long,what,notes\n"))
	assert.Error(t, err)
}
