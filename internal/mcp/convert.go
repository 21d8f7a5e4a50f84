package mcp

import (
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// jq accepts only int, float64, string, bool, nil, []any, and map[string]any.

func optionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

func optionalUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return int(t.Unix())
}

func optionalCode(c api.ErrorCode) any {
	if c == api.ErrorNone {
		return nil
	}
	return string(c)
}

// SiteToMap converts an api.Site to a map for jq processing.
func SiteToMap(s api.Site) map[string]any {
	return map[string]any{
		"url":                  s.URL,
		"status":               s.Status.String(),
		"consecutive_failures": s.ConsecutiveFailures,
		"last_error":           optionalCode(s.LastError),
		"last_downtime":        optionalTime(s.LastDowntimeAt),
		"last_checked":         optionalTime(s.LastCheckedAt),
	}
}

// IncidentToMap converts an api.Incident to a map for jq processing.
func IncidentToMap(inc api.Incident) map[string]any {
	r := map[string]any{
		"id":             inc.ID,
		"url":            inc.Target,
		"error":          optionalCode(inc.Error),
		"starts_at":      inc.StartsAt.Format(time.RFC3339),
		"starts_at_unix": int(inc.StartsAt.Unix()),
		"ends_at":        optionalTime(inc.EndsAt),
		"ends_at_unix":   optionalUnix(inc.EndsAt),
	}

	if d := inc.DurationSeconds(); d != nil {
		r["duration_seconds"] = int(*d)
	} else {
		r["duration_seconds"] = nil
	}

	return r
}

// AvailabilityToMap converts an api.Availability to a map for jq processing.
func AvailabilityToMap(a api.Availability) map[string]any {
	return map[string]any{
		"uptime_percent":   a.UptimePercent,
		"downtime_seconds": int(a.DowntimeSeconds),
		"incidents":        a.Incidents,
	}
}

// StatusEventToMap converts an api.StatusEvent to a map for jq processing.
func StatusEventToMap(e api.StatusEvent) map[string]any {
	return map[string]any{
		"url":       e.Target,
		"status":    e.Status.String(),
		"timestamp": e.Time.Format(time.RFC3339),
	}
}

// ProbeResultToMap converts an api.ProbeResult to a map for jq processing.
func ProbeResultToMap(r api.ProbeResult) map[string]any {
	return map[string]any{
		"url":        r.Target,
		"checked_at": r.CheckedAt.Format(time.RFC3339),
		"verdict":    r.Verdict.String(),
		"error":      optionalCode(r.Error),
		"latency_ms": float64(r.Latency.Microseconds()) / 1000,
		"message":    r.Message,
	}
}
