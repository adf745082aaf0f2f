package nextrip

import (
	"strconv"
	"time"

	"github.com/qu-genesis/metro-transit-pings/internal/alert"
)

// stopResponse is the NexTrip per-stop payload. Only the departures list is
// consumed; the stops and alerts sections are ignored.
type stopResponse struct {
	Departures []wireDeparture `json:"departures"`
}

// wireDeparture mirrors one entry of the NexTrip departures array.
type wireDeparture struct {
	Actual         bool   `json:"actual"` // true when departure_time is a live estimate
	TripID         string `json:"trip_id"`
	RouteID        string `json:"route_id"`
	RouteShortName string `json:"route_short_name"`
	DirectionID    int    `json:"direction_id"`
	DirectionText  string `json:"direction_text"`
	Description    string `json:"description"`
	DepartureText  string `json:"departure_text"`
	DepartureTime  int64  `json:"departure_time"` // unix seconds, current best estimate
	ScheduleTime   int64  `json:"schedule_time"`  // unix seconds, published schedule
}

// toDeparture converts a wire entry to the engine's model. When the feed
// omits the published schedule time, the first observed estimate stands in
// for it, which keeps the dedup key stable from that point on.
func (wd wireDeparture) toDeparture(stopID string) (alert.Departure, bool) {
	if wd.DepartureTime == 0 {
		return alert.Departure{}, false
	}
	scheduled := wd.ScheduleTime
	if scheduled == 0 {
		scheduled = wd.DepartureTime
	}
	return alert.Departure{
		RouteID:          wd.RouteID,
		StopID:           stopID,
		Direction:        strconv.Itoa(wd.DirectionID),
		RouteLabel:       wd.RouteShortName,
		DestinationLabel: wd.Description,
		ScheduledTime:    time.Unix(scheduled, 0).UTC(),
		EstimatedTime:    time.Unix(wd.DepartureTime, 0).UTC(),
	}, true
}

// FilterByRoute narrows a stop's departures to one monitored route and,
// when direction is non-empty, one direction.
func FilterByRoute(departures []alert.Departure, routeID, direction string) []alert.Departure {
	var out []alert.Departure
	for _, d := range departures {
		if d.RouteID != routeID {
			continue
		}
		if direction != "" && d.Direction != direction {
			continue
		}
		out = append(out, d)
	}
	return out
}
