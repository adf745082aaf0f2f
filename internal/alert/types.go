// Package alert decides when "leave now" and delay notifications should fire
// for monitored departures, and tracks what has already been communicated so
// repeated polls of the same departure do not re-alert.
//
// Evaluation is pure: given the current time, the poll's departures, and the
// previously persisted snapshot, it returns the messages to send and the new
// snapshot. All I/O (fetching, delivery, persistence) lives elsewhere.
package alert

import (
	"fmt"
	"math"
	"time"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Departure is one upcoming transit departure as reported by the feed.
// Produced fresh each poll; EstimatedTime may drift between polls while
// ScheduledTime stays fixed once published.
type Departure struct {
	RouteID          string
	StopID           string
	Direction        string
	RouteLabel       string
	DestinationLabel string
	ScheduledTime    time.Time
	EstimatedTime    time.Time
}

// Key returns the stable identity of a departure across polls. It is built
// from the scheduled time rather than the estimated time, since the estimate
// drifts as delays develop.
func (d Departure) Key() string {
	return fmt.Sprintf("%s_%s_%s_%d", d.RouteID, d.StopID, d.Direction, d.ScheduledTime.Unix())
}

// DelayMinutes returns how many minutes the departure is currently running
// late, floored at zero (early departures are not treated as delays).
func (d Departure) DelayMinutes() int {
	m := int(math.Round(d.EstimatedTime.Sub(d.ScheduledTime).Minutes()))
	if m < 0 {
		return 0
	}
	return m
}

// Record is the persisted memory of what has been sent for one departure key.
type Record struct {
	Key                      string    `json:"key"`
	InitialAlertSentAt       time.Time `json:"initial_alert_sent_at,omitzero"`
	LastNotifiedDelayMinutes int       `json:"last_notified_delay_minutes"`
	ScheduledTime            time.Time `json:"scheduled_time"`
}

// Snapshot maps departure keys to their alert records. A key is present iff
// at least one notification has been sent for it.
type Snapshot map[string]Record

// Clone returns a shallow copy so evaluation never mutates its input.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// MessageKind distinguishes the two notification types.
type MessageKind string

const (
	KindInitial MessageKind = "initial"
	KindDelay   MessageKind = "delay"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind MessageKind
	Key  string
	Text string
}

// Config holds the user's timing preferences.
type Config struct {
	// WalkingTime is the door-to-stop walk; leave-by = estimated - walking.
	WalkingTime time.Duration
	// AdvanceNotice is how far before leave-by the initial alert fires.
	AdvanceNotice time.Duration
	// DelayThresholdMinutes is the minimum additional delay, beyond what was
	// last communicated, that justifies a follow-up message.
	DelayThresholdMinutes int
	// Location renders clock times in the user's timezone.
	Location *time.Location
}
