package tvu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/tvuschedule/store"
)

// envelope is the common response wrapper of the portal API.
type envelope struct {
	Result  bool            `json:"result"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// flexInt decodes a JSON number, a numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexInt(n)
	return nil
}

// flexString decodes a JSON string or number as a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type semesterList struct {
	Semesters []struct {
		ID   flexString `json:"hoc_ky"`
		Name string     `json:"ten_hoc_ky"`
	} `json:"ds_hoc_ky"`
}

type weekSchedule struct {
	Weeks   []portalWeek  `json:"ds_tuan_tkb"`
	Entries []portalEntry `json:"ds_thoi_khoa_bieu"`
}

type portalWeek struct {
	SemesterWeek *flexInt      `json:"tuan_hoc_ky"`
	Week         flexInt       `json:"tuan"`
	Info         string        `json:"thong_tin_tuan"`
	Entries      []portalEntry `json:"ds_thoi_khoa_bieu"`
}

func (w *portalWeek) number() int {
	if w.SemesterWeek != nil {
		return int(*w.SemesterWeek)
	}
	return int(w.Week)
}

// portalEntry accepts both the snake_case and camelCase field names the
// portal has used over time; camelCase wins when both are present.
type portalEntry struct {
	Day          *flexInt  `json:"thu"`
	DayNumeric   *flexInt  `json:"thu_kieu_so"`
	FirstPeriod  *flexInt  `json:"tietBatDau"`
	FirstPeriod2 *flexInt  `json:"tiet_bat_dau"`
	Periods      *flexInt  `json:"soTiet"`
	Periods2     *flexInt  `json:"so_tiet"`
	Subject      string    `json:"tenMonHoc"`
	Subject2     string    `json:"ten_mon"`
	Room         string    `json:"phong"`
	Room2        string    `json:"ma_phong"`
	Teacher      string    `json:"giangVien"`
	Teacher2     string    `json:"ten_giang_vien"`
	Weeks        []flexInt `json:"tuanHoc"`
	Weeks2       []flexInt `json:"tuan_hoc"`
}

func firstInt(def int, values ...*flexInt) int {
	for _, v := range values {
		if v != nil {
			return int(*v)
		}
	}
	return def
}

func firstString(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// runsInWeek reports whether the entry's week list, when present, includes week.
func (e *portalEntry) runsInWeek(week int) bool {
	weeks := e.Weeks
	if len(weeks) == 0 {
		weeks = e.Weeks2
	}
	if len(weeks) == 0 {
		return true
	}
	for _, w := range weeks {
		if int(w) == week {
			return true
		}
	}
	return false
}

func (e *portalEntry) toClassEntry() (*store.ClassEntry, error) {
	day, err := store.DayOfWeekFromPortalCode(firstInt(0, e.Day, e.DayNumeric))
	if err != nil {
		return nil, err
	}
	first := firstInt(1, e.FirstPeriod, e.FirstPeriod2)
	count := firstInt(1, e.Periods, e.Periods2)
	start, end, err := PeriodSpan(first, count)
	if err != nil {
		return nil, err
	}
	subject := firstString(e.Subject, e.Subject2)
	if subject == "" {
		return nil, fmt.Errorf("entry has no subject")
	}
	return &store.ClassEntry{
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Subject:   subject,
		Room:      firstString(e.Room, e.Room2),
		Teacher:   firstString(e.Teacher, e.Teacher2),
		Notes:     fmt.Sprintf("Tiết %d-%d", first, first+count-1),
	}, nil
}

// parseWeekSchedule extracts the entries of one week from the data payload.
// The payload is normally a list of weeks; a bare entry list or an object
// holding ds_thoi_khoa_bieu directly is also accepted.
func parseWeekSchedule(data json.RawMessage, week int) ([]*store.ClassEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return []*store.ClassEntry{}, nil
	}

	var raw []portalEntry
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	} else {
		var ws weekSchedule
		if err := json.Unmarshal(data, &ws); err != nil {
			return nil, err
		}
		if ws.Weeks != nil {
			for i := range ws.Weeks {
				if ws.Weeks[i].number() == week {
					raw = ws.Weeks[i].Entries
					break
				}
			}
		} else {
			raw = ws.Entries
		}
	}

	type key struct {
		day     store.DayOfWeek
		start   store.ClockTime
		subject string
		room    string
	}
	seen := make(map[key]bool, len(raw))
	entries := make([]*store.ClassEntry, 0, len(raw))
	for i := range raw {
		if !raw[i].runsInWeek(week) {
			continue
		}
		entry, err := raw[i].toClassEntry()
		if err != nil {
			slog.Warn("skipping portal timetable entry", "week", week, "error", err)
			continue
		}
		k := key{entry.DayOfWeek, entry.StartTime, entry.Subject, entry.Room}
		if seen[k] {
			continue
		}
		seen[k] = true
		entries = append(entries, entry)
	}
	return entries, nil
}

// weekRangePattern matches the range in "Tuần 16 [từ ngày 15/12/2025 đến ngày 21/12/2025]".
var weekRangePattern = regexp.MustCompile(`(?i)từ ngày (\d{1,2}/\d{1,2}/\d{4}) đến ngày (\d{1,2}/\d{1,2}/\d{4})`)

// parseWeekInfos returns the headers of the weeks that have classes.
func parseWeekInfos(data json.RawMessage, loc *time.Location) ([]*store.WeekInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return []*store.WeekInfo{}, nil
	}
	var ws weekSchedule
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, err
	}

	weeks := make([]*store.WeekInfo, 0, len(ws.Weeks))
	for i := range ws.Weeks {
		w := &ws.Weeks[i]
		if w.number() <= 0 || len(w.Entries) == 0 {
			continue
		}
		info := &store.WeekInfo{
			Week:       w.number(),
			Label:      w.Info,
			ClassCount: len(w.Entries),
		}
		if m := weekRangePattern.FindStringSubmatch(w.Info); m != nil {
			start, errStart := time.ParseInLocation("2/1/2006", m[1], loc)
			end, errEnd := time.ParseInLocation("2/1/2006", m[2], loc)
			if errStart == nil && errEnd == nil {
				info.Start, info.End = start, end
			}
		}
		weeks = append(weeks, info)
	}
	return weeks, nil
}
