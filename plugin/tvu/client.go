// Package tvu is the client for the Trà Vinh University student portal
// (ttsv.tvu.edu.vn). It implements store.TimetableDriver.
package tvu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/tvuschedule/internal/errors"
	"github.com/hrygo/tvuschedule/store"
)

const (
	// DefaultBaseURL is the public portal address.
	DefaultBaseURL = "https://ttsv.tvu.edu.vn"

	semesterListPath = "/dkmh/api/sch/w-locdshockytkbuser"
	weekSchedulePath = "/dkmh/api/sch/w-locdstkbtuanusertheohocky"

	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
	pageLimit        = 100
)

// Config configures a portal client.
type Config struct {
	BaseURL     string
	AccessToken string
	// RequestsPerSecond limits outgoing calls; zero disables the limit.
	RequestsPerSecond float64
	Timeout           time.Duration
	// Location is used to read week date ranges.
	Location   *time.Location
	HTTPClient *http.Client
}

// Client talks to the portal's timetable API with a bearer token.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	location *time.Location
}

var _ store.TimetableDriver = (*Client)(nil)

// NewClient creates a portal client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		baseURL:  baseURL,
		token:    cfg.AccessToken,
		http:     httpClient,
		limiter:  limiter,
		location: loc,
	}
}

type paging struct {
	Limit int `json:"limit"`
	Page  int `json:"page"`
}

type additional struct {
	Paging paging `json:"paging"`
}

type request struct {
	Filter     map[string]any `json:"filter"`
	Additional additional     `json:"additional"`
}

func newRequest(filter map[string]any) *request {
	if filter == nil {
		filter = map[string]any{}
	}
	return &request{Filter: filter, Additional: additional{Paging: paging{Limit: pageLimit, Page: 1}}}
}

func (c *Client) ListSemesters(ctx context.Context) ([]*store.SemesterInfo, error) {
	data, err := c.post(ctx, semesterListPath, newRequest(nil))
	if err != nil {
		return nil, err
	}
	var list semesterList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.UpstreamMalformed("decode semester list", err)
	}
	semesters := make([]*store.SemesterInfo, 0, len(list.Semesters))
	for _, s := range list.Semesters {
		if s.ID == "" {
			continue
		}
		semesters = append(semesters, &store.SemesterInfo{ID: string(s.ID), Name: s.Name})
	}
	return semesters, nil
}

func (c *Client) FetchWeekSchedule(ctx context.Context, semesterID string, week int) ([]*store.ClassEntry, error) {
	data, err := c.post(ctx, weekSchedulePath, newRequest(map[string]any{
		"hoc_ky": semesterID,
		"tuan":   week,
	}))
	if err != nil {
		return nil, err
	}
	entries, err := parseWeekSchedule(data, week)
	if err != nil {
		return nil, errors.UpstreamMalformed("decode week schedule", err).
			WithContext("semester", semesterID).
			WithContext("week", week)
	}
	slog.Info("fetched portal week schedule", "semester", semesterID, "week", week, "entries", len(entries))
	return entries, nil
}

// ListWeeks asks for the first week; the portal answers with every week of
// the semester, so the headers come from a single call.
func (c *Client) ListWeeks(ctx context.Context, semesterID string) ([]*store.WeekInfo, error) {
	data, err := c.post(ctx, weekSchedulePath, newRequest(map[string]any{
		"hoc_ky": semesterID,
		"tuan":   1,
	}))
	if err != nil {
		return nil, err
	}
	weeks, err := parseWeekInfos(data, c.location)
	if err != nil {
		return nil, errors.UpstreamMalformed("decode week list", err).WithContext("semester", semesterID)
	}
	return weeks, nil
}

// post sends one API call and returns the data field of a successful
// response. Failures keep their class: rejected credentials, an unreachable
// portal and an unreadable answer map to distinct error codes.
func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, contextError(ctx, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to encode request for %s", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, err)
		}
		return nil, errors.UpstreamUnavailable("portal request failed", err).WithContext("path", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.UpstreamUnavailable("read portal response", err).WithContext("path", path)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		slog.Warn("portal rejected access token", "path", path, "status", resp.StatusCode)
		return nil, errors.Unauthorized("portal rejected the access token; sign in again").WithContext("status", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.UpstreamUnavailable(fmt.Sprintf("portal returned status %d", resp.StatusCode), nil).
			WithContext("path", path).
			WithContext("status", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.UpstreamMalformed("portal response is not valid JSON", err).WithContext("path", path)
	}
	if !env.Result {
		msg := env.Message
		if msg == "" {
			msg = "no message"
		}
		return nil, errors.UpstreamMalformed("portal reported failure: "+msg, nil).WithContext("path", path)
	}
	return env.Data, nil
}

func contextError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Timeout("portal request timed out")
	}
	return errors.ContextCanceled(err)
}
