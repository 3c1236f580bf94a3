// Package gcal pushes timetable entries to Google Calendar and renders them
// as iCalendar documents.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/store"
)

const (
	// DefaultBaseURL is the Google Calendar v3 API root.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"
	// DefaultCalendarID selects the account's primary calendar.
	DefaultCalendarID = "primary"

	maxPages         = 10
	pageSize         = 250
	maxResponseBytes = 4 << 20
)

// Config configures a calendar client.
type Config struct {
	BaseURL     string
	CalendarID  string
	AccessToken string
	// TimeZone is the IANA name sent with created events.
	TimeZone string
	// HTTPClient is the transport under the OAuth2 layer.
	HTTPClient *http.Client
}

// Client is a minimal Google Calendar v3 client.
type Client struct {
	baseURL    string
	calendarID string
	timeZone   string
	http       *http.Client
}

var _ store.CalendarDriver = (*Client)(nil)

// NewClient creates a calendar client authorised with a static access token.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})

	return &Client{
		baseURL:    baseURL,
		calendarID: calendarID,
		timeZone:   cfg.TimeZone,
		http:       oauth2.NewClient(ctx, src),
	}
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

func (t eventTime) parse() (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse(time.DateOnly, t.Date)
	}
	return time.Time{}, fmt.Errorf("event time is empty")
}

type event struct {
	ID          string    `json:"id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

func (e *event) toExternal() (*store.ExternalEvent, error) {
	start, err := e.Start.parse()
	if err != nil {
		return nil, err
	}
	ext := &store.ExternalEvent{ID: e.ID, Title: e.Summary, Start: start}
	if end, err := e.End.parse(); err == nil {
		ext.End = end
	}
	return ext, nil
}

type eventList struct {
	Items         []event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}

func (c *Client) eventsURL() string {
	return c.baseURL + "/calendars/" + url.PathEscape(c.calendarID) + "/events"
}

// ListEvents returns the non-cancelled events starting in [start, end).
// Recurring events are expanded into single instances.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]*store.ExternalEvent, error) {
	events := []*store.ExternalEvent{}
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("timeMin", start.Format(time.RFC3339))
		q.Set("timeMax", end.Format(time.RFC3339))
		q.Set("singleEvents", "true")
		q.Set("orderBy", "startTime")
		q.Set("maxResults", fmt.Sprint(pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var list eventList
		if err := c.do(ctx, http.MethodGet, c.eventsURL()+"?"+q.Encode(), nil, &list); err != nil {
			return nil, err
		}
		for i := range list.Items {
			item := &list.Items[i]
			if item.Status == "cancelled" {
				continue
			}
			ext, err := item.toExternal()
			if err != nil {
				slog.Warn("skipping calendar event without start", "id", item.ID, "error", err)
				continue
			}
			if ext.Start.Before(start) || !ext.Start.Before(end) {
				continue
			}
			events = append(events, ext)
		}
		if list.NextPageToken == "" {
			return events, nil
		}
		pageToken = list.NextPageToken
	}
	slog.Warn("calendar event listing truncated", "pages", maxPages, "events", len(events))
	return events, nil
}

// CreateEvent inserts one timed event.
func (c *Client) CreateEvent(ctx context.Context, create *store.CalendarEvent) (*store.ExternalEvent, error) {
	if create == nil || create.Summary == "" {
		return nil, errors.InvalidArgument("event summary is required")
	}
	if !create.End.After(create.Start) {
		return nil, errors.InvalidArgument("event must end after it starts").WithContext("summary", create.Summary)
	}
	body := &event{
		Summary:     create.Summary,
		Description: create.Description,
		Location:    create.Location,
		Start:       eventTime{DateTime: create.Start.Format(time.RFC3339), TimeZone: c.timeZone},
		End:         eventTime{DateTime: create.End.Format(time.RFC3339), TimeZone: c.timeZone},
	}
	var created event
	if err := c.do(ctx, http.MethodPost, c.eventsURL(), body, &created); err != nil {
		return nil, err
	}
	ext, err := created.toExternal()
	if err != nil {
		return nil, errors.UpstreamMalformed("created event has no start", err)
	}
	slog.Info("created calendar event", "id", ext.ID, "summary", ext.Title, "start", ext.Start)
	return ext, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to encode calendar request")
		}
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to build calendar request %s", method)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return errors.Timeout("calendar request timed out")
		case ctx.Err() != nil:
			return errors.ContextCanceled(err)
		}
		return errors.UpstreamUnavailable("calendar request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.UpstreamUnavailable("read calendar response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Unauthorized("calendar rejected the access token").WithContext("status", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.UpstreamUnavailable(fmt.Sprintf("calendar returned status %d", resp.StatusCode), nil).
			WithContext("status", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.UpstreamMalformed("calendar response is not valid JSON", err)
	}
	return nil
}
