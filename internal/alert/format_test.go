package alert

import (
	"testing"
	"time"
)

func TestClock_NoLeadingZero(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{at(8, 45), "8:45 AM"},
		{at(12, 5), "12:05 PM"},
		{at(0, 30), "12:30 AM"},
		{at(17, 0), "5:00 PM"},
	}
	for _, c := range cases {
		if got := clock(c.in, chicago); got != c.want {
			t.Errorf("clock(%v): want %q, got %q", c.in, c.want, got)
		}
	}
}

func TestClock_ConvertsToLocalZone(t *testing.T) {
	// Pin a date after the DST switch: 13:45 UTC is 8:45 AM CDT.
	utc := time.Date(2025, time.March, 10, 13, 45, 0, 0, time.UTC)
	if got := clock(utc, chicago); got != "8:45 AM" {
		t.Errorf("want 8:45 AM, got %q", got)
	}
}

func TestMinutesUntil_Rounds(t *testing.T) {
	now := at(8, 0)
	if got := minutesUntil(now, now.Add(17*time.Minute+40*time.Second)); got != 18 {
		t.Errorf("want 18, got %d", got)
	}
	if got := minutesUntil(now, now.Add(17*time.Minute+20*time.Second)); got != 17 {
		t.Errorf("want 17, got %d", got)
	}
}
