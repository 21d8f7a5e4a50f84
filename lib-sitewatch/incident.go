package sitewatch

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Incident is a single continuous downtime of a target.
type Incident struct {
	ID     string
	Target string

	// StartsAt is the time the outage was confirmed.
	StartsAt time.Time

	// EndsAt is the time the target recovered. Zero means the incident is still open.
	EndsAt time.Time

	// Error is the error code that caused the incident.
	Error ErrorCode
}

// NewIncident makes an open Incident.
func NewIncident(id, target string, startsAt time.Time, code ErrorCode) (Incident, error) {
	if target == "" {
		return Incident{}, ErrEmptyTarget
	}
	if startsAt.IsZero() {
		return Incident{}, fmt.Errorf("%w: start time is required", ErrInvalidInterval)
	}

	return Incident{
		ID:       id,
		Target:   target,
		StartsAt: startsAt,
		Error:    code,
	}, nil
}

// IsOpen reports whether the incident is still continued.
func (i Incident) IsOpen() bool {
	return i.EndsAt.IsZero()
}

// Close returns closed copy of the incident.
// It returns an error if the incident is already closed, or if at is before StartsAt.
func (i Incident) Close(at time.Time) (Incident, error) {
	if !i.IsOpen() {
		return i, ErrAlreadyClosed
	}
	if at.Before(i.StartsAt) {
		return i, fmt.Errorf("%w: %s < %s", ErrInvalidInterval, at.Format(time.RFC3339), i.StartsAt.Format(time.RFC3339))
	}

	i.EndsAt = at
	return i, nil
}

// Duration returns the length of the closed incident.
// It returns 0 if the incident is still open.
func (i Incident) Duration() time.Duration {
	if i.IsOpen() {
		return 0
	}
	return i.EndsAt.Sub(i.StartsAt)
}

// DurationSeconds returns Duration in seconds, or nil if the incident is still open.
func (i Incident) DurationSeconds() *int64 {
	if i.IsOpen() {
		return nil
	}
	d := int64(i.Duration() / time.Second)
	return &d
}

// Overlaps reports whether the incident intersects with [since, until].
// An open incident is treated as it continues until the until.
func (i Incident) Overlaps(since, until time.Time) bool {
	if i.StartsAt.After(until) {
		return false
	}
	return i.IsOpen() || !i.EndsAt.Before(since)
}

type jsonIncident struct {
	ID              string  `json:"id"`
	Target          string  `json:"url"`
	StartsAt        string  `json:"start"`
	EndsAt          *string `json:"end"`
	DurationSeconds *int64  `json:"duration_seconds"`
	Error           *string `json:"error"`
}

// MarshalJSON implements json.Marshaler.
func (i Incident) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonIncident{
		ID:              i.ID,
		Target:          i.Target,
		StartsAt:        i.StartsAt.Format(time.RFC3339),
		EndsAt:          optionalTime(i.EndsAt),
		DurationSeconds: i.DurationSeconds(),
		Error:           optionalString(string(i.Error)),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Incident) UnmarshalJSON(data []byte) error {
	var raw jsonIncident
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	startsAt, err := time.Parse(time.RFC3339, raw.StartsAt)
	if err != nil {
		return err
	}
	endsAt, err := parseOptionalTime(raw.EndsAt)
	if err != nil {
		return err
	}
	if !endsAt.IsZero() && endsAt.Before(startsAt) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidInterval)
	}

	*i = Incident{
		ID:       raw.ID,
		Target:   raw.Target,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
	if raw.Error != nil {
		i.Error = ErrorCode(*raw.Error)
	}
	return nil
}
