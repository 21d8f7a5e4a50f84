package sitewatch

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ProbeResult is the observation of a single probe attempt.
type ProbeResult struct {
	Target string

	// CheckedAt is the time the probe started.
	CheckedAt time.Time

	Latency time.Duration

	Verdict Verdict

	// Error is the reason of VerdictDown. It is always ErrorNone if Verdict is VerdictUp.
	Error ErrorCode

	// Message is a free-form detail of the probe, like the response status line.
	Message string
}

type jsonProbeResult struct {
	Target    string  `json:"target"`
	CheckedAt string  `json:"checked_at"`
	Latency   float64 `json:"latency"`
	Verdict   Verdict `json:"verdict"`
	Error     *string `json:"error"`
	Message   string  `json:"message,omitempty"`
}

// MarshalJSON implements json.Marshaler.
// The latency is in milliseconds.
func (r ProbeResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonProbeResult{
		Target:    r.Target,
		CheckedAt: r.CheckedAt.Format(time.RFC3339),
		Latency:   float64(r.Latency.Microseconds()) / 1000,
		Verdict:   r.Verdict,
		Error:     optionalString(string(r.Error)),
		Message:   r.Message,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ProbeResult) UnmarshalJSON(data []byte) error {
	var raw jsonProbeResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t, err := time.Parse(time.RFC3339, raw.CheckedAt)
	if err != nil {
		return err
	}

	*r = ProbeResult{
		Target:    raw.Target,
		CheckedAt: t,
		Latency:   time.Duration(raw.Latency * float64(time.Millisecond)),
		Verdict:   raw.Verdict,
		Message:   raw.Message,
	}
	if raw.Error != nil {
		r.Error = ErrorCode(*raw.Error)
	}
	return nil
}

// String makes a human readable, tab separated line.
func (r ProbeResult) String() string {
	code := string(r.Error)
	if code == "" {
		code = "-"
	}

	return strings.Join([]string{
		r.CheckedAt.Format(time.RFC3339),
		r.Verdict.String(),
		strconv.FormatFloat(float64(r.Latency.Microseconds())/1000, 'f', 3, 64),
		r.Target,
		code,
		r.Message,
	}, "\t")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseOptionalTime(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, *s)
}
