package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesync/internal/domain"
	"timesync/internal/meter"
	"timesync/internal/ports"
	"timesync/internal/usecase"
)

type fakeProvider struct {
	name       domain.Source
	fetchCalls int
}

func (f *fakeProvider) Name() domain.Source { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, win domain.Window) ([]json.RawMessage, error) {
	f.fetchCalls++
	return []json.RawMessage{json.RawMessage(`{"id":"1","hours":1}`)}, nil
}

func (f *fakeProvider) Normalize(raw json.RawMessage) (domain.Normalized, error) {
	var r struct {
		ID    string  `json:"id"`
		Hours float64 `json:"hours"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Normalized{}, err
	}
	id := r.ID
	return domain.Normalized{Entry: domain.Entry{
		Source:        f.name,
		ExternalID:    &id,
		DurationHours: r.Hours,
	}}, nil
}

type fakeStore struct {
	rows map[string]domain.Entry
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string]domain.Entry{}} }

func (s *fakeStore) SaveBatch(ctx context.Context, entries []domain.Entry, policy domain.BatchPolicy) (domain.BatchResult, error) {
	var res domain.BatchResult
	for i, e := range entries {
		key := fmt.Sprintf("%s/%d", e.Source, i)
		if e.ExternalID != nil {
			key = fmt.Sprintf("%s/%s", e.Source, *e.ExternalID)
		}
		if _, ok := s.rows[key]; ok {
			res.Updated++
		} else {
			res.Inserted++
		}
		s.rows[key] = e
	}
	return res, nil
}

func (s *fakeStore) ListEntries(ctx context.Context, win domain.Window) ([]domain.Entry, error) {
	var out []domain.Entry
	for _, e := range s.rows {
		out = append(out, e)
	}
	return out, nil
}

type fakeMeterStore struct {
	readings map[string][]meter.Reading
}

func (s *fakeMeterStore) LatestReading(ctx context.Context, name string) (*meter.Reading, error) {
	rs := s.readings[name]
	if len(rs) == 0 {
		return nil, nil
	}
	r := rs[len(rs)-1]
	return &r, nil
}

func (s *fakeMeterStore) InsertReading(ctx context.Context, r meter.Reading) (int64, error) {
	r.ID = int64(len(s.readings[r.Meter]) + 1)
	s.readings[r.Meter] = append(s.readings[r.Meter], r)
	return r.ID, nil
}

func (s *fakeMeterStore) ListReadings(ctx context.Context, name string) ([]meter.Reading, error) {
	return s.readings[name], nil
}

func newTestApp(provider ports.Provider) (*App, *fakeStore) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore()
	uc := &usecase.SyncUseCase{
		Log:       log,
		Providers: []ports.Provider{provider},
		Store:     store,
		Policy:    domain.BestEffort,
	}
	return &App{
		log:    log,
		uc:     uc,
		store:  store,
		meters: meter.NewService(&fakeMeterStore{readings: map[string][]meter.Reading{}}, log),
	}, store
}

func TestPostSyncReturnsReport(t *testing.T) {
	a, store := newTestApp(&fakeProvider{name: domain.SourceToggl})
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sync", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report domain.SyncReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Providers, 1)
	assert.True(t, report.Providers[0].Success)
	assert.Len(t, store.rows, 1)
}

func TestPostSyncRejectsBadDates(t *testing.T) {
	a, _ := newTestApp(&fakeProvider{name: domain.SourceToggl})
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sync?start=garbage", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostEntriesManualEntry(t *testing.T) {
	a, store := newTestApp(&fakeProvider{name: domain.SourceToggl})
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	body := `{"date":"2026-01-10","hours":1.5,"project":"PRJ-1","description":"standup"}`
	resp, err := http.Post(srv.URL+"/entries", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, store.rows, 1)

	resp2, err := http.Post(srv.URL+"/entries", "application/json",
		strings.NewReader(`{"date":"2026-01-10","hours":-1}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestGetEntries(t *testing.T) {
	a, store := newTestApp(&fakeProvider{name: domain.SourceToggl})
	extID := "1"
	store.rows["toggl/1"] = domain.Entry{Source: domain.SourceToggl, ExternalID: &extID, DurationHours: 2}
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/entries")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []domain.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Len(t, entries, 1)
}

func TestMeterEndpoints(t *testing.T) {
	a, _ := newTestApp(&fakeProvider{name: domain.SourceToggl})
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/meters/gas/readings", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	r1 := post(fmt.Sprintf(`{"read_at":%q,"value":1000}`, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)))
	defer r1.Body.Close()
	require.Equal(t, http.StatusCreated, r1.StatusCode)

	r2 := post(fmt.Sprintf(`{"read_at":%q,"value":1010}`, time.Date(2026, 1, 8, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)))
	defer r2.Body.Close()
	require.Equal(t, http.StatusCreated, r2.StatusCode)

	// A decreasing reading breaks the monotonic sequence.
	r3 := post(fmt.Sprintf(`{"read_at":%q,"value":900}`, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)))
	defer r3.Body.Close()
	assert.Equal(t, http.StatusConflict, r3.StatusCode)

	resp, err := http.Get(srv.URL + "/meters/gas/consumption")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var deltas []meter.Delta
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deltas))
	require.Len(t, deltas, 1)
	assert.Equal(t, 10.0, deltas[0].Used)
}

func TestHealthz(t *testing.T) {
	a, _ := newTestApp(&fakeProvider{name: domain.SourceToggl})
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
