package alert

import (
	"fmt"
	"math"
	"time"
)

// renderInitial builds the "time to head out" message.
func renderInitial(now time.Time, cfg Config, dep Departure, leaveBy time.Time) string {
	return fmt.Sprintf(
		"🚌 *Time to head out!*\n\n"+
			"*%s* to %s\n"+
			"🚏 Departs: %s (in %d min)\n"+
			"🚶 Leave by: %s (in %d min)",
		dep.RouteLabel, dep.DestinationLabel,
		clock(dep.EstimatedTime, cfg.Location), minutesUntil(now, dep.EstimatedTime),
		clock(leaveBy, cfg.Location), minutesUntil(now, leaveBy),
	)
}

// renderDelay builds the follow-up message for a departure that slipped
// further since the last notification. The headline delay is the total slip
// versus the published schedule.
func renderDelay(now time.Time, cfg Config, dep Departure, delayMinutes int, leaveBy time.Time) string {
	return fmt.Sprintf(
		"⚠️ *Bus Update - %s Delayed*\n\n"+
			"Original: %s\n"+
			"Now: %s (+%d min delay)\n\n"+
			"🚶 New leave by: %s (in %d min)",
		dep.RouteLabel,
		clock(dep.ScheduledTime, cfg.Location),
		clock(dep.EstimatedTime, cfg.Location), delayMinutes,
		clock(leaveBy, cfg.Location), minutesUntil(now, leaveBy),
	)
}

// clock formats an instant as a local wall-clock time like "8:45 AM".
func clock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("3:04 PM")
}

func minutesUntil(now, t time.Time) int {
	return int(math.Round(t.Sub(now).Minutes()))
}
