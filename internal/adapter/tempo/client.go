package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"timesync/internal/domain"
)

// pageLimit is fixed; only the first page is fetched. Worklog volume beyond
// one page per window is a known scale ceiling, not handled here.
const pageLimit = 1000

// Client fetches worklogs from the Tempo REST API v4 using a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL, token string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.tempo.io"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func (c *Client) Name() domain.Source { return domain.SourceTempo }

// Fetch lists raw worklogs in the window.
// Tempo v4: GET /4/worklogs?from=...&to=...&limit=1000 (single page).
func (c *Client) Fetch(ctx context.Context, win domain.Window) ([]json.RawMessage, error) {
	if c.token == "" {
		return nil, errors.New("tempo: missing api token")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/4/worklogs"
	q := u.Query()
	q.Set("from", win.Start.Format("2006-01-02"))
	q.Set("to", win.End.Format("2006-01-02"))
	q.Set("limit", fmt.Sprintf("%d", pageLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tempo: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var page struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("tempo: decode response: %w", err)
	}
	return page.Results, nil
}

// Normalize maps one raw worklog to the canonical shape. timeSpentSeconds
// converts to hours; a worklog without positive spent time has no settled
// duration and is skipped. A worklog whose issue key is absent falls back to
// "Issue #<id>" so the entry still carries a stable display label; a missing
// description falls back to the comment field, then to the empty string.
func (c *Client) Normalize(raw json.RawMessage) (domain.Normalized, error) {
	var r rawWorklog
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Normalized{}, fmt.Errorf("tempo: decode record: %w", err)
	}
	if r.TimeSpentSeconds <= 0 {
		return domain.Normalized{}, domain.ErrNoSettledDuration
	}

	date, err := parseWorklogDate(r.StartDate, r.StartTime)
	if err != nil {
		return domain.Normalized{}, fmt.Errorf("tempo: worklog %d: %w", r.TempoWorklogID, err)
	}

	var (
		project  string
		fallback bool
	)
	if r.Issue.Key != "" {
		project = r.Issue.Key
	} else {
		project = fmt.Sprintf("Issue #%d", r.Issue.ID)
		fallback = true
	}

	description := r.Description
	if description == "" {
		description = r.Comment
	}

	extID := fmt.Sprintf("%d", r.TempoWorklogID)
	return domain.Normalized{
		Entry: domain.Entry{
			Source:        domain.SourceTempo,
			ExternalID:    &extID,
			Date:          date,
			DurationHours: float64(r.TimeSpentSeconds) / 3600.0,
			Project:       project,
			Description:   description,
		},
		UsedFallback: fallback,
	}, nil
}

// parseWorklogDate combines Tempo's split date and time fields into one UTC
// timestamp. A missing start time means midnight.
func parseWorklogDate(startDate, startTime string) (time.Time, error) {
	if startTime == "" {
		d, err := time.ParseInLocation("2006-01-02", startDate, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		return d, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", startDate+" "+startTime, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start %q %q: %w", startDate, startTime, err)
	}
	return t, nil
}

// rawWorklog mirrors the JSON from Tempo v4.
type rawWorklog struct {
	TempoWorklogID int64 `json:"tempoWorklogId"`
	Issue          struct {
		ID  int64  `json:"id"`
		Key string `json:"key"`
	} `json:"issue"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
	StartDate        string `json:"startDate"`
	StartTime        string `json:"startTime"`
	Description      string `json:"description"`
	Comment          string `json:"comment"`
}
