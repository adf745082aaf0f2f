package alert

import "time"

// Evaluate applies the alert rules to one poll's departures against the prior
// snapshot. It returns the messages to deliver (in input order) and the
// updated snapshot, and never mutates its inputs.
//
// Rules, per departure:
//   - a departure whose estimated time has already passed never alerts;
//   - the initial alert fires once now reaches alert time (leave-by minus
//     advance notice), creating the record with the currently known delay
//     folded in so it is not re-announced;
//   - a follow-up fires when the delay has grown by at least the threshold
//     beyond what was last communicated.
//
// Departures absent from the poll leave their records untouched: feed gaps
// are common and do not mean the departure was cancelled.
func Evaluate(now time.Time, cfg Config, departures []Departure, prior Snapshot) ([]Message, Snapshot) {
	next := prior.Clone()

	var messages []Message
	for _, dep := range departures {
		if !now.Before(dep.EstimatedTime) {
			// Bus already left (or is leaving this instant); alerting now
			// would only send the user chasing it.
			continue
		}

		leaveBy := dep.EstimatedTime.Add(-cfg.WalkingTime)
		alertAt := leaveBy.Add(-cfg.AdvanceNotice)
		delay := dep.DelayMinutes()
		key := dep.Key()

		rec, tracked := next[key]
		switch {
		case (!tracked || rec.InitialAlertSentAt.IsZero()) && !now.Before(alertAt):
			// First alert for this departure. If it is already running late,
			// the delay is baked into this message and recorded so the delay
			// rule does not immediately re-fire.
			messages = append(messages, Message{
				Kind: KindInitial,
				Key:  key,
				Text: renderInitial(now, cfg, dep, leaveBy),
			})
			next[key] = Record{
				Key:                      key,
				InitialAlertSentAt:       now,
				LastNotifiedDelayMinutes: delay,
				ScheduledTime:            dep.ScheduledTime,
			}

		case tracked && !rec.InitialAlertSentAt.IsZero() &&
			delay-rec.LastNotifiedDelayMinutes >= cfg.DelayThresholdMinutes:
			messages = append(messages, Message{
				Kind: KindDelay,
				Key:  key,
				Text: renderDelay(now, cfg, dep, delay, leaveBy),
			})
			rec.LastNotifiedDelayMinutes = delay
			next[key] = rec
		}
	}

	return messages, next
}
