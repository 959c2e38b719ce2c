package toggl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"timesync/internal/domain"
)

// Client fetches time entries from the Toggl Track API v9.
//
// Auth is HTTP Basic with the API token as the username and the literal
// string "api_token" as the password. Date bounds travel as start_date and
// end_date. Pagination is not implemented; the v9 me/time_entries endpoint
// returns the window in one response for the scales this system targets.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *slog.Logger
}

// NewClient builds a Toggl client. The token is passed in explicitly; the
// client never reads process environment.
func NewClient(baseURL, apiToken string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.track.toggl.com"
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func (c *Client) Name() domain.Source { return domain.SourceToggl }

// Fetch lists raw time entries in the window.
// Toggl v9: GET /api/v9/me/time_entries?start_date=...&end_date=...
func (c *Client) Fetch(ctx context.Context, win domain.Window) ([]json.RawMessage, error) {
	if c.apiToken == "" {
		return nil, errors.New("toggl: missing api token")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/api/v9/me/time_entries"
	q := u.Query()
	q.Set("start_date", win.Start.Format(time.RFC3339))
	q.Set("end_date", win.End.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", c.apiToken, "api_token")))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("toggl: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("toggl: decode response: %w", err)
	}
	return raw, nil
}

// Normalize maps one raw Toggl entry to the canonical shape. Duration comes
// in seconds; a negative duration means the timer is still running and the
// record is skipped. A missing project name falls back to "Project #<id>".
func (c *Client) Normalize(raw json.RawMessage) (domain.Normalized, error) {
	var r rawTimeEntry
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Normalized{}, fmt.Errorf("toggl: decode record: %w", err)
	}
	if r.Duration < 0 || (r.Duration == 0 && r.Stop == nil) {
		return domain.Normalized{}, domain.ErrNoSettledDuration
	}

	var (
		project  string
		fallback bool
	)
	switch {
	case r.ProjectName != "":
		project = r.ProjectName
	case r.ProjectID != nil:
		project = fmt.Sprintf("Project #%d", *r.ProjectID)
		fallback = true
	}

	extID := strconv.FormatInt(r.ID, 10)
	return domain.Normalized{
		Entry: domain.Entry{
			Source:        domain.SourceToggl,
			ExternalID:    &extID,
			Date:          r.Start.UTC(),
			DurationHours: float64(r.Duration) / 3600.0,
			Project:       project,
			Description:   r.Description,
		},
		UsedFallback: fallback,
	}, nil
}

// rawTimeEntry mirrors the JSON from Toggl v9.
type rawTimeEntry struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	ProjectID   *int64     `json:"project_id"`
	ProjectName string     `json:"project_name"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}
