package sitewatch_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

func TestComputeAvailability(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time {
		return t0.Add(time.Duration(sec) * time.Second)
	}
	closed := func(start, end int) api.Incident {
		return api.Incident{ID: "x", Target: "https://example.com", StartsAt: at(start), EndsAt: at(end)}
	}
	open := func(start int) api.Incident {
		return api.Incident{ID: "x", Target: "https://example.com", StartsAt: at(start)}
	}

	tests := []struct {
		Name      string
		Incidents []api.Incident
		Since     time.Time
		Until     time.Time
		Expect    api.Availability
	}{
		{
			"no-incident",
			nil,
			at(0), at(86400),
			api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0},
		},
		{
			"ten-seconds-in-an-hour",
			[]api.Incident{closed(30, 40)},
			at(0), at(3600),
			api.Availability{UptimePercent: 99.722, DowntimeSeconds: 10, Incidents: 1},
		},
		{
			"open-incident-from-before-window",
			[]api.Incident{open(-100)},
			at(0), at(3600),
			api.Availability{UptimePercent: 0, DowntimeSeconds: 3600, Incidents: 1},
		},
		{
			"clip-both-sides",
			[]api.Incident{closed(-60, 60), closed(3540, 3660)},
			at(0), at(3600),
			api.Availability{UptimePercent: 96.667, DowntimeSeconds: 120, Incidents: 2},
		},
		{
			"ended-before-window",
			[]api.Incident{closed(-120, -60)},
			at(0), at(3600),
			api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0},
		},
		{
			"ended-exactly-at-window-start",
			[]api.Incident{closed(-60, 0)},
			at(0), at(3600),
			api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0},
		},
		{
			"started-after-until",
			[]api.Incident{open(3700)},
			at(0), at(3600),
			api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0},
		},
		{
			"overlapping-incidents-are-merged",
			[]api.Incident{closed(100, 200), closed(150, 400)},
			at(0), at(1000),
			api.Availability{UptimePercent: 70, DowntimeSeconds: 300, Incidents: 2},
		},
		{
			"empty-window",
			[]api.Incident{open(-10)},
			at(0), at(0),
			api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			actual := api.ComputeAvailability(tt.Incidents, tt.Since, tt.Until)
			if diff := cmp.Diff(tt.Expect, actual); diff != "" {
				t.Errorf("unexpected availability:\n%s", diff)
			}

			again := api.ComputeAvailability(tt.Incidents, tt.Since, tt.Until)
			if diff := cmp.Diff(actual, again); diff != "" {
				t.Errorf("result changed on the second call:\n%s", diff)
			}
		})
	}
}

func TestComputeAvailability_bounds(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	incidents := []api.Incident{
		{Target: "a", StartsAt: now.Add(-90 * time.Minute), EndsAt: now.Add(-80 * time.Minute)},
		{Target: "a", StartsAt: now.Add(-30 * time.Minute), EndsAt: now.Add(10 * time.Minute)},
		{Target: "a", StartsAt: now.Add(-5 * time.Minute)},
	}

	for w := time.Second; w <= 3*time.Hour; w += 7 * time.Second {
		a := api.ComputeAvailability(incidents, now.Add(-w), now)

		if a.UptimePercent < 0 || a.UptimePercent > 100 {
			t.Fatalf("%s: uptime out of range: %f", w, a.UptimePercent)
		}
		if a.DowntimeSeconds < 0 || a.DowntimeSeconds > int64(w/time.Second) {
			t.Fatalf("%s: downtime out of range: %d", w, a.DowntimeSeconds)
		}
	}
}

func TestComputeAvailability_monotonic(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// every widening of the window adds either nothing but downtime, or only the recent uptime before the incident is reached.
	incidents := []api.Incident{
		{Target: "a", StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-30 * time.Minute)},
	}

	last := 100.0
	for w := time.Minute; w <= 2*time.Hour; w += time.Minute {
		a := api.ComputeAvailability(incidents, now.Add(-w), now)
		if a.UptimePercent > last {
			t.Fatalf("%s: uptime increased from %f to %f", w, last, a.UptimePercent)
		}
		last = a.UptimePercent
	}
}
