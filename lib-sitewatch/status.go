package sitewatch

import (
	"fmt"
)

const (
	// StatusOnline means the site is considered available.
	// It is also the initial state of a site that has never been probed.
	StatusOnline Status = iota

	// StatusOffline means the site has failed enough probes in a row to be treated as a real outage.
	StatusOffline
)

// Status is the debounced availability state of a site.
type Status int8

// ParseStatus parses status string.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "online", "ONLINE":
		return StatusOnline, nil
	case "offline", "OFFLINE":
		return StatusOffline, nil
	default:
		return StatusOnline, fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, raw)
	}
}

// String returns "online" or "offline".
func (s Status) String() string {
	if s == StatusOffline {
		return "offline"
	}
	return "online"
}

// MarshalText is marshal Status as text.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is unmarshal text as status.
func (s *Status) UnmarshalText(text []byte) (err error) {
	*s, err = ParseStatus(string(text))
	return err
}

const (
	// VerdictUp means a single probe succeeded.
	VerdictUp Verdict = iota

	// VerdictDown means a single probe failed.
	VerdictDown
)

// Verdict is the binary outcome of one probe attempt.
// It is independent of the debounced Status of the site.
type Verdict int8

func (v Verdict) String() string {
	if v == VerdictDown {
		return "down"
	}
	return "up"
}

// MarshalText is marshal Verdict as text.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText is unmarshal text as verdict.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up":
		*v = VerdictUp
	case "down":
		*v = VerdictDown
	default:
		return fmt.Errorf("%w: unknown verdict %q", ErrInvalidRecord, string(text))
	}
	return nil
}
