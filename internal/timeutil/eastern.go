// Package timeutil centralizes U.S. Eastern civil-time arithmetic.
//
// Every date key the worker persists (ingest checkpoints, job runs, filing
// dates) is derived here so that DST handling lives in exactly one place.
package timeutil

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/relvacode/iso8601"
)

// Eastern is the exchange time zone (America/New_York).
var Eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("timeutil: load America/New_York: %v", err))
	}
	Eastern = loc
}

// Parts holds the Eastern civil reading of an instant.
type Parts struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
	Milli  int
}

// EasternParts returns the civil parts of t in Eastern time.
func EasternParts(t time.Time) Parts {
	et := t.In(Eastern)
	return Parts{
		Year:   et.Year(),
		Month:  et.Month(),
		Day:    et.Day(),
		Hour:   et.Hour(),
		Minute: et.Minute(),
		Second: et.Second(),
		Milli:  et.Nanosecond() / int(time.Millisecond),
	}
}

// StartOfEasternDay returns the first instant of the Eastern civil day containing t.
func StartOfEasternDay(t time.Time) time.Time {
	et := t.In(Eastern)
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, Eastern)
}

// EndOfEasternDay returns the last represented instant (23:59:59.999) of the
// Eastern civil day containing t.
func EndOfEasternDay(t time.Time) time.Time {
	et := t.In(Eastern)
	return time.Date(et.Year(), et.Month(), et.Day(), 23, 59, 59, 999*int(time.Millisecond), Eastern)
}

// CreateEasternDate builds an instant from Eastern civil parts. For wall times
// that are ambiguous or skipped across a DST transition, the reading is
// whatever the zone database resolves for that wall clock; it is not
// re-interpreted.
func CreateEasternDate(year int, month time.Month, day, hour, min, sec, ms int) time.Time {
	return time.Date(year, month, day, hour, min, sec, ms*int(time.Millisecond), Eastern)
}

// DateKey formats t as the Eastern civil date "YYYY-MM-DD".
func DateKey(t time.Time) string {
	return t.In(Eastern).Format("2006-01-02")
}

// DateKeyCompact formats t as the Eastern civil date "YYYYMMDD".
func DateKeyCompact(t time.Time) string {
	return t.In(Eastern).Format("20060102")
}

// ParseDate accepts "YYYY-MM-DD" (read as midnight Eastern) or an ISO-8601
// timestamp with offset. The second return is false for anything else.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.ParseInLocation("2006-01-02", s, Eastern); err == nil {
		return d, true
	}
	// Only full timestamps (a time part carrying an offset) take the ISO-8601
	// path; the parser would otherwise accept partial dates like "2024-02".
	if i := strings.Index(s, "T"); i >= 0 {
		rest := s[i+1:]
		if strings.HasSuffix(rest, "Z") || strings.ContainsAny(rest, "+-") {
			if ts, err := iso8601.ParseString(s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// EnsureDate is ParseDate for callers that must fail loudly on bad input.
func EnsureDate(s string) (time.Time, error) {
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q", s)
	}
	return t, nil
}

// AddEasternDays shifts t by n Eastern civil days, preserving the wall-clock
// reading even across DST transitions.
func AddEasternDays(t time.Time, n int) time.Time {
	et := t.In(Eastern)
	return time.Date(et.Year(), et.Month(), et.Day()+n, et.Hour(), et.Minute(), et.Second(), et.Nanosecond(), Eastern)
}
