// Package alert notifies incident transitions to the outside.
package alert

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/macrat/sitewatch/internal/siteerr"
	"github.com/macrat/sitewatch/internal/tracker"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	ErrInvalidAlert      = errors.New("invalid alert target")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

const (
	KindOpened Kind = "opened"
	KindClosed Kind = "closed"
)

// Kind is the kind of transition.
type Kind string

// Alert is a notification of a single incident transition.
type Alert struct {
	Kind       Kind
	Target     string
	IncidentID string

	// Error is the cause of the incident.
	Error api.ErrorCode

	// Duration is the length of the incident. It is zero for KindOpened.
	Duration time.Duration

	At time.Time
}

// FromEvent makes an Alert from a tracker event.
// The ok is false if the event is not a transition.
func FromEvent(ev tracker.Event) (a Alert, ok bool) {
	a = Alert{
		Target:     ev.Incident.Target,
		IncidentID: ev.Incident.ID,
		Error:      ev.Incident.Error,
	}

	switch ev.Kind {
	case tracker.EventOpened:
		a.Kind = KindOpened
		a.At = ev.Incident.StartsAt
	case tracker.EventClosed:
		a.Kind = KindClosed
		a.At = ev.Incident.EndsAt
		a.Duration = ev.Incident.Duration()
	default:
		return Alert{}, false
	}

	return a, true
}

// Sender delivers alerts to a destination.
type Sender interface {
	Target() string
	Send(ctx context.Context, a Alert) error
}

// NewSender creates a Sender for the alert target.
func NewSender(target string) (Sender, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, siteerr.New(ErrInvalidAlert, err, "%s", target)
	}

	var s Sender
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		s, err = NewWebhookSender(target, u)
	case "telegram":
		s, err = NewTelegramSender(target, u)
	default:
		err = ErrUnsupportedScheme
	}
	if err != nil {
		return nil, siteerr.New(ErrInvalidAlert, err, "%s", target)
	}
	return s, nil
}
