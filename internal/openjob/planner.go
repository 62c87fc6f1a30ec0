package openjob

import (
	"fmt"
	"strings"
	"time"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/timeutil"
)

// Window is one exchange session plus the interval of filing timestamps it
// admits. The admission interval reaches back to the first civil day after
// the prior session, so disclosures published over a weekend or holiday are
// picked up by the next session rather than dropped.
type Window struct {
	SessionDate  string // Eastern date key
	SessionOpen  time.Time
	SessionClose time.Time
	Start        time.Time // admission interval start
	End          time.Time // admission interval end (session close)
}

// Contains reports whether ts falls inside the admission interval.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// Plan is the output of window planning: the previous and current session
// windows and the civil days whose filings must be fetched.
type Plan struct {
	Previous  Window
	Current   Window
	FetchDays []time.Time // Eastern midnights, previous session date through current, inclusive
}

// PlanWindows resolves the current and previous sessions against the exchange
// calendar. When now falls outside any session, the next upcoming session
// (per the clock) is treated as current.
func PlanWindows(now time.Time, cal []alpaca.CalendarDay, clock *alpaca.Clock) (*Plan, error) {
	if len(cal) == 0 {
		return nil, fmt.Errorf("openjob: empty exchange calendar")
	}

	currentIdx := -1
	nowKey := timeutil.DateKey(now)
	for i, day := range cal {
		if day.Date != nowKey {
			continue
		}
		open, close, err := sessionBounds(day)
		if err != nil {
			return nil, err
		}
		if !now.Before(open) && !now.After(close) {
			currentIdx = i
		}
		break
	}

	if currentIdx == -1 {
		// Not inside a session: the next upcoming session is current.
		nextKey := nowKey
		if !clock.NextOpen.IsZero() {
			nextKey = timeutil.DateKey(clock.NextOpen)
		}
		for i, day := range cal {
			if day.Date >= nextKey {
				currentIdx = i
				break
			}
		}
	}
	if currentIdx == -1 {
		return nil, fmt.Errorf("openjob: no current session on or after %s", nowKey)
	}
	if currentIdx == 0 {
		return nil, fmt.Errorf("openjob: calendar range does not cover the previous session before %s", cal[currentIdx].Date)
	}

	current, err := buildWindow(cal[currentIdx])
	if err != nil {
		return nil, err
	}
	previous, err := buildWindow(cal[currentIdx-1])
	if err != nil {
		return nil, err
	}

	prevDay, err := timeutil.EnsureDate(previous.SessionDate)
	if err != nil {
		return nil, err
	}
	currentDay, err := timeutil.EnsureDate(current.SessionDate)
	if err != nil {
		return nil, err
	}

	// Previous admits its own session day; current admits everything after
	// the previous session through its own close.
	previous.Start = timeutil.StartOfEasternDay(prevDay)
	current.Start = timeutil.StartOfEasternDay(timeutil.AddEasternDays(prevDay, 1))

	var fetchDays []time.Time
	for d := prevDay; !d.After(currentDay); d = timeutil.AddEasternDays(d, 1) {
		fetchDays = append(fetchDays, d)
	}

	return &Plan{Previous: previous, Current: current, FetchDays: fetchDays}, nil
}

func buildWindow(day alpaca.CalendarDay) (Window, error) {
	open, close, err := sessionBounds(day)
	if err != nil {
		return Window{}, err
	}
	return Window{
		SessionDate:  day.Date,
		SessionOpen:  open,
		SessionClose: close,
		End:          close,
	}, nil
}

// sessionBounds resolves a calendar entry to open/close instants, preferring
// the extended session_open/session_close fields when present.
func sessionBounds(day alpaca.CalendarDay) (time.Time, time.Time, error) {
	date, err := timeutil.EnsureDate(day.Date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("openjob: calendar date: %w", err)
	}

	openStr, closeStr := day.Open, day.Close
	if day.SessionOpen != "" && day.SessionClose != "" {
		openStr, closeStr = day.SessionOpen, day.SessionClose
	}

	open, err := atWallClock(date, openStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("openjob: session open for %s: %w", day.Date, err)
	}
	close, err := atWallClock(date, closeStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("openjob: session close for %s: %w", day.Date, err)
	}
	return open, close, nil
}

// atWallClock places an "HH:MM" or "HHMM" wall time onto the given Eastern day.
func atWallClock(date time.Time, wall string) (time.Time, error) {
	var hh, mm int
	var err error
	switch {
	case strings.Contains(wall, ":"):
		_, err = fmt.Sscanf(wall, "%d:%d", &hh, &mm)
	case len(wall) == 4:
		_, err = fmt.Sscanf(wall, "%2d%2d", &hh, &mm)
	default:
		err = fmt.Errorf("unrecognized wall time %q", wall)
	}
	if err != nil {
		return time.Time{}, err
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, fmt.Errorf("wall time %q out of range", wall)
	}
	p := timeutil.EasternParts(date)
	return timeutil.CreateEasternDate(p.Year, p.Month, p.Day, hh, mm, 0, 0), nil
}
