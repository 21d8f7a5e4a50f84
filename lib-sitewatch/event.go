package sitewatch

import (
	"time"

	"github.com/goccy/go-json"
)

// StatusEvent is a confirmed status transition of a target.
type StatusEvent struct {
	Target string
	Status Status
	Time   time.Time
}

type jsonStatusEvent struct {
	Target string `json:"url"`
	Status Status `json:"status"`
	Time   string `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (e StatusEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonStatusEvent{
		Target: e.Target,
		Status: e.Status,
		Time:   e.Time.Format(time.RFC3339),
	})
}

// DowntimeEntry is an entry of the downtime log.
// This is a view for displaying, and not used to calculate availability.
type DowntimeEntry struct {
	Target string
	Time   time.Time
	Error  ErrorCode
}

type jsonDowntimeEntry struct {
	Target string  `json:"url"`
	Time   string  `json:"timestamp"`
	Error  *string `json:"error"`
}

// MarshalJSON implements json.Marshaler.
func (e DowntimeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonDowntimeEntry{
		Target: e.Target,
		Time:   e.Time.Format(time.RFC3339),
		Error:  optionalString(string(e.Error)),
	})
}
