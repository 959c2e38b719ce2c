package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"timesync/internal/domain"
	"timesync/internal/meter"
	"timesync/internal/usecase"
)

// Router exposes the sync trigger, the canonical read API, manual entry, and
// the meter endpoints.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/sync", a.handleSync)
	r.Get("/entries", a.handleListEntries)
	r.Post("/entries", a.handleCreateEntry)
	r.Post("/meters/{meter}/readings", a.handleRecordReading)
	r.Get("/meters/{meter}/consumption", a.handleConsumption)

	return r
}

// handleSync triggers one orchestrator run.
// POST /sync?force=true&start=...&end=... — start/end accept RFC3339 or
// YYYY-MM-DD; an end given as date-only is inclusive (next-day midnight).
// The report always carries per-provider outcomes, failed providers included.
func (a *App) handleSync(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	opts := usecase.SyncOptions{
		Force: q.Get("force") == "true" || q.Get("force") == "1",
	}
	if v := q.Get("start"); v != "" {
		t, err := parseStartParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := parseEndParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.End = &t
	}

	report, err := a.uc.Run(req.Context(), opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListEntries serves sorted canonical entries for the UI.
func (a *App) handleListEntries(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	win := domain.DefaultWindow(time.Now())
	if s, e := q.Get("start"), q.Get("end"); s != "" && e != "" {
		start, err := parseStartParam(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		end, err := parseEndParam(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		win = domain.CustomWindow(start, end)
	}

	entries, err := a.store.ListEntries(req.Context(), win)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type createEntryRequest struct {
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Project     string  `json:"project"`
	Description string  `json:"description"`
}

// handleCreateEntry is the manual-entry adapter into the canonical write
// path. Manual rows have no stable external identity and always insert new.
func (a *App) handleCreateEntry(w http.ResponseWriter, req *http.Request) {
	var body createEntryRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	date, err := parseStartParam(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Hours < 0 {
		writeError(w, http.StatusBadRequest, errors.New("hours must be non-negative"))
		return
	}

	res, err := a.store.SaveBatch(req.Context(), []domain.Entry{{
		Source:        domain.SourceManual,
		Date:          date,
		DurationHours: body.Hours,
		Project:       body.Project,
		Description:   body.Description,
	}}, domain.BestEffort)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": res.Inserted})
}

type recordReadingRequest struct {
	ReadAt time.Time `json:"read_at"`
	Value  float64   `json:"value"`
}

func (a *App) handleRecordReading(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "meter")
	var body recordReadingRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ReadAt.IsZero() {
		body.ReadAt = time.Now().UTC()
	}

	reading, err := a.meters.Record(req.Context(), name, body.ReadAt, body.Value)
	if err != nil {
		var me *meter.MonotonicityError
		if errors.As(err, &me) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

func (a *App) handleConsumption(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "meter")
	deltas, err := a.meters.Consumption(req.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if deltas == nil {
		deltas = []meter.Delta{}
	}
	writeJSON(w, http.StatusOK, deltas)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

// parseStartParam parses a boundary that may be RFC3339 or YYYY-MM-DD.
func parseStartParam(val string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", val, time.UTC); err == nil {
		return d, nil
	}
	return time.Time{}, errors.New("invalid date " + val + ", expected RFC3339 or YYYY-MM-DD")
}

// parseEndParam parses an end boundary. Date-only form is treated as
// inclusive by converting to next-day 00:00 UTC.
func parseEndParam(val string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", val, time.UTC); err == nil {
		return d.Add(24 * time.Hour), nil
	}
	return time.Time{}, errors.New("invalid date " + val + ", expected RFC3339 or YYYY-MM-DD")
}
