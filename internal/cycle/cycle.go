// Package cycle runs one complete check: pause gate, departure fetch, alert
// evaluation, delivery, and state persistence. It is invoked by an external
// scheduler every few minutes and assumes "now is a valid moment to run".
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qu-genesis/metro-transit-pings/internal/alert"
	"github.com/qu-genesis/metro-transit-pings/internal/config"
	"github.com/qu-genesis/metro-transit-pings/internal/nextrip"
	"github.com/qu-genesis/metro-transit-pings/internal/notify"
	"github.com/qu-genesis/metro-transit-pings/internal/state"
)

// Source supplies upcoming departures for a stop.
type Source interface {
	Departures(ctx context.Context, stopID string) ([]alert.Departure, error)
}

// Deps are the collaborators of one cycle. Now is overridable for tests and
// defaults to time.Now.
type Deps struct {
	Source Source
	Sender notify.Sender
	Store  *state.Store
	Gate   *state.PauseGate
	Now    func() time.Time
}

// Run executes one cycle. It returns an error only for failures that must
// abort the run (a fetch failure); delivery and persistence problems are
// logged and the cycle still completes, since the next scheduled run
// self-corrects them.
func Run(ctx context.Context, cfg *config.Config, deps Deps, logger *slog.Logger) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	now := deps.Now()

	// 1. Pause gate short-circuits everything.
	if deps.Gate.IsPaused() {
		logger.Info("alerts are paused, skipping cycle")
		return nil
	}

	// 2. Fetch departures for every monitored route. Each stop is fetched
	// once even when several routes share it. Any failure aborts the cycle:
	// evaluating against partial data could mark alerts as sent that the
	// user never got a chance to receive.
	departures, err := fetchMonitored(ctx, cfg, deps.Source, now, logger)
	if err != nil {
		return err
	}

	// 3. Decide what to say.
	prior := deps.Store.Load(now)
	engineCfg := alert.Config{
		WalkingTime:           time.Duration(cfg.Alerts.WalkingTimeMinutes) * time.Minute,
		AdvanceNotice:         time.Duration(cfg.Alerts.AdvanceNoticeMinutes) * time.Minute,
		DelayThresholdMinutes: cfg.Alerts.DelayThresholdMinutes,
		Location:              cfg.Location(),
	}
	messages, next := alert.Evaluate(now, engineCfg, departures, prior)
	if len(messages) == 0 {
		logger.Info("nothing due", "departures", len(departures), "tracked", len(next))
	}

	// 4. Deliver. One failed send must not block the rest of the batch, and
	// nothing is retried within the cycle.
	var sendErrs []error
	for _, msg := range messages {
		if err := deps.Sender.Send(ctx, msg.Text); err != nil {
			logger.Error("send failed", "kind", msg.Kind, "key", msg.Key, "error", err)
			sendErrs = append(sendErrs, fmt.Errorf("send %s alert for %s: %w", msg.Kind, msg.Key, err))
			continue
		}
		logger.Info("alert sent", "kind", msg.Kind, "key", msg.Key)
	}

	// 5. Persist only after every delivery has been attempted. Persisting
	// first would silently swallow alerts whenever delivery then failed;
	// this order risks at most a duplicate alert if the save fails.
	if err := deps.Store.Save(next); err != nil {
		logger.Warn("could not persist alert state, next cycle may re-alert", "error", err)
	}

	if len(sendErrs) > 0 {
		logger.Error("cycle finished with delivery failures",
			"failed", len(sendErrs), "total", len(messages), "error", errors.Join(sendErrs...))
	}
	return nil
}

// fetchMonitored pulls each configured stop once, filters to the monitored
// route/direction combinations, and drops departures whose alert time is
// still more than max_wait_minutes away.
func fetchMonitored(ctx context.Context, cfg *config.Config, source Source, now time.Time, logger *slog.Logger) ([]alert.Departure, error) {
	byStop := make(map[string][]alert.Departure)
	var monitored []alert.Departure

	leadTime := time.Duration(cfg.Alerts.WalkingTimeMinutes+cfg.Alerts.AdvanceNoticeMinutes) * time.Minute
	horizon := time.Duration(cfg.Alerts.MaxWaitMinutes) * time.Minute

	for _, route := range cfg.Routes {
		stopDeps, ok := byStop[route.StopID]
		if !ok {
			var err error
			stopDeps, err = source.Departures(ctx, route.StopID)
			if err != nil {
				return nil, fmt.Errorf("fetch departures for stop %s: %w", route.StopID, err)
			}
			byStop[route.StopID] = stopDeps
		}

		matched := nextrip.FilterByRoute(stopDeps, route.RouteID, route.Direction)
		kept := 0
		for _, dep := range matched {
			alertAt := dep.EstimatedTime.Add(-leadTime)
			if alertAt.Sub(now) > horizon {
				continue // too far out to be worth tracking yet
			}
			monitored = append(monitored, dep)
			kept++
		}
		logger.Info("checked route",
			"description", route.Description, "route_id", route.RouteID,
			"stop_id", route.StopID, "matched", len(matched), "relevant", kept)
	}
	return monitored, nil
}
