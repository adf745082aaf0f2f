// Package nextrip is a client for the Metro Transit NexTrip v2 API, the
// departure source for alert evaluation.
//
// One GET per stop returns every upcoming departure at that stop; callers
// filter down to the monitored route/direction. Requests are rate limited
// with a token bucket so a config with many stops stays polite to the API.
package nextrip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/qu-genesis/metro-transit-pings/internal/alert"
)

// DefaultBaseURL is the public NexTrip v2 endpoint.
const DefaultBaseURL = "https://svc.metrotransit.org/nextrip"

// Client is the NexTrip HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a rate-limited NexTrip client.
func NewClient(baseURL string, timeout time.Duration, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// Departures returns every upcoming departure NexTrip reports for a stop.
// Any failure here is a hard stop for the cycle: evaluating against partial
// or stale data would be worse than skipping the run.
func (c *Client) Departures(ctx context.Context, stopID string) ([]alert.Departure, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, stopID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stop %s: %w", stopID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NexTrip stop %s returned %d: %s", stopID, resp.StatusCode, truncate(body, 200))
	}

	var sr stopResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode stop %s response: %w", stopID, err)
	}

	departures := make([]alert.Departure, 0, len(sr.Departures))
	for _, wd := range sr.Departures {
		dep, ok := wd.toDeparture(stopID)
		if !ok {
			c.logger.Warn("skipping departure without a usable time",
				"stop_id", stopID, "route_id", wd.RouteID, "trip_id", wd.TripID)
			continue
		}
		departures = append(departures, dep)
	}
	return departures, nil
}

// truncate keeps error messages readable when the API returns an HTML page.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
