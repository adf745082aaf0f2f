// Package schedule gates the check cycle to a configured set of weekdays and
// a local time-of-day window. The cycle itself assumes scheduling has already
// been decided; this gate runs in front of it, in the CLI.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Window is an active monitoring window: which weekdays, and between which
// local wall-clock minutes.
type Window struct {
	days  map[time.Weekday]bool
	start int // minutes since local midnight, inclusive
	end   int // minutes since local midnight, inclusive
}

// Parse builds a window from config values like ["mon","tue"], "07:30",
// "09:30". Day names are three-letter, case-insensitive.
func Parse(days []string, start, end string) (*Window, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("active window needs at least one day")
	}
	w := &Window{days: make(map[time.Weekday]bool, len(days))}
	for _, d := range days {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q (use mon, tue, ...)", d)
		}
		w.days[wd] = true
	}

	var err error
	if w.start, err = parseClock(start); err != nil {
		return nil, fmt.Errorf("window start: %w", err)
	}
	if w.end, err = parseClock(end); err != nil {
		return nil, fmt.Errorf("window end: %w", err)
	}
	if w.end <= w.start {
		return nil, fmt.Errorf("window end %s must be after start %s", end, start)
	}
	return w, nil
}

// Active reports whether now (converted to loc) falls inside the window.
func (w *Window) Active(now time.Time, loc *time.Location) bool {
	local := now.In(loc)
	if !w.days[local.Weekday()] {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= w.start && minutes <= w.end
}

// parseClock turns "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%q has an invalid hour", s)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return hour*60 + min, nil
}
