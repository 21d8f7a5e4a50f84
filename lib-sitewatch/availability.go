package sitewatch

import (
	"math"
	"sort"
	"time"
)

// Availability is the uptime summary of a target over a window.
type Availability struct {
	// UptimePercent is in [0, 100], rounded to 3 decimal places.
	UptimePercent float64 `json:"uptime_percent"`

	// DowntimeSeconds is in [0, window], in whole seconds.
	DowntimeSeconds int64 `json:"downtime_seconds"`

	// Incidents is the number of incidents that overlap the window.
	Incidents int `json:"incidents"`
}

// FullAvailability is the Availability of a window without any incident.
var FullAvailability = Availability{UptimePercent: 100}

// ComputeAvailability calculates availability in [since, until] from incidents of a single target.
//
// Each incident is clipped to the window; an open incident counts as continuing until the until.
// Incidents that overlap each other are merged before summing, so the downtime never exceeds the window.
func ComputeAvailability(incidents []Incident, since, until time.Time) Availability {
	window := until.Sub(since)
	if window <= 0 {
		return FullAvailability
	}

	type span struct {
		start, end time.Time
	}
	spans := make([]span, 0, len(incidents))

	for _, x := range incidents {
		start := x.StartsAt
		if start.Before(since) {
			start = since
		}

		end := until
		if !x.IsOpen() && x.EndsAt.Before(until) {
			end = x.EndsAt
		}

		if end.After(start) {
			spans = append(spans, span{start, end})
		}
	}

	if len(spans) == 0 {
		return FullAvailability
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})

	var downtime time.Duration
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.start.After(cur.end) {
			downtime += cur.end.Sub(cur.start)
			cur = s
		} else if s.end.After(cur.end) {
			cur.end = s.end
		}
	}
	downtime += cur.end.Sub(cur.start)

	if downtime > window {
		downtime = window
	}

	uptime := window - downtime
	percent := math.Round(float64(uptime)/float64(window)*100*1000) / 1000
	percent = math.Max(0, math.Min(100, percent))

	return Availability{
		UptimePercent:   percent,
		DowntimeSeconds: int64(downtime / time.Second),
		Incidents:       len(spans),
	}
}
