package sitewatch

import (
	"time"

	"github.com/goccy/go-json"
)

// Site is the current known state of a monitored target.
type Site struct {
	URL    string
	Status Status

	// ConsecutiveFailures is the number of failed probes since the last succeeded probe.
	ConsecutiveFailures int

	// LastError is the error code of the latest failed probe, or empty if the latest probe succeeded.
	LastError ErrorCode

	// LastDowntimeAt is the start time of the latest incident. Zero means never.
	LastDowntimeAt time.Time

	// LastCheckedAt is the time of the latest observation. Zero means never.
	LastCheckedAt time.Time
}

// NewSite makes a Site in the initial state: online and no failures.
func NewSite(url string) Site {
	return Site{
		URL:    url,
		Status: StatusOnline,
	}
}

type jsonSite struct {
	URL                 string  `json:"url"`
	Status              Status  `json:"status"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	LastError           *string `json:"last_error"`
	LastDowntime        *string `json:"last_downtime"`
	LastChecked         *string `json:"last_checked"`
}

// MarshalJSON implements json.Marshaler.
func (s Site) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonSite{
		URL:                 s.URL,
		Status:              s.Status,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastError:           optionalString(string(s.LastError)),
		LastDowntime:        optionalTime(s.LastDowntimeAt),
		LastChecked:         optionalTime(s.LastCheckedAt),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Site) UnmarshalJSON(data []byte) error {
	var raw jsonSite
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	downtime, err := parseOptionalTime(raw.LastDowntime)
	if err != nil {
		return err
	}
	checked, err := parseOptionalTime(raw.LastChecked)
	if err != nil {
		return err
	}

	*s = Site{
		URL:                 raw.URL,
		Status:              raw.Status,
		ConsecutiveFailures: raw.ConsecutiveFailures,
		LastDowntimeAt:      downtime,
		LastCheckedAt:       checked,
	}
	if raw.LastError != nil {
		s.LastError = ErrorCode(*raw.LastError)
	}
	return nil
}
