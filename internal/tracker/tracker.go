// Package tracker turns probe verdicts into debounced site status and incidents.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/macrat/sitewatch/internal/store"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// ErrNoOpenIncident means a site went back online without an open incident.
var ErrNoOpenIncident = errors.New("no open incident to close")

// CurrentTime returns current time.
// This variable is for testing purpose.
var CurrentTime = time.Now

const (
	EventNone EventKind = iota
	EventOpened
	EventClosed
)

// EventKind is the kind of a transition.
type EventKind int8

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	default:
		return "none"
	}
}

// Event is the result of an observation.
type Event struct {
	Kind EventKind

	// Site is the site state after the observation.
	Site api.Site

	// Incident is the opened or closed incident. It is empty if Kind is EventNone.
	Incident api.Incident
}

// EventHandler is called after an observation that opened or closed an incident.
type EventHandler func(Event)

// ErrorReporter receives invariant violations.
type ErrorReporter interface {
	ReportInternalError(scope, message string)
}

// Tracker is the state machine of sites.
type Tracker struct {
	store     store.Store
	threshold int
	reporter  ErrorReporter

	// OnEvent handlers are called after the transaction committed.
	OnEvent []EventHandler

	locksLock sync.Mutex
	locks     map[string]*sync.Mutex
}

// New creates a Tracker.
// A threshold less than 1 is treated as 1.
func New(s store.Store, threshold int, reporter ErrorReporter) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{
		store:     s,
		threshold: threshold,
		reporter:  reporter,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Threshold returns the number of consecutive failures to open an incident.
func (t *Tracker) Threshold() int {
	return t.threshold
}

func (t *Tracker) lockOf(target string) *sync.Mutex {
	t.locksLock.Lock()
	defer t.locksLock.Unlock()

	l, ok := t.locks[target]
	if !ok {
		l = &sync.Mutex{}
		t.locks[target] = l
	}
	return l
}

// Observe applies a probe verdict to the site.
//
// Observations of the same target are serialized. All changes of an observation are written in one transaction.
// Desynchronization between the site state and the incident ledger is reported to the ErrorReporter and never returned.
func (t *Tracker) Observe(ctx context.Context, target string, verdict api.Verdict, code api.ErrorCode) (Event, error) {
	if target == "" {
		return Event{}, api.ErrEmptyTarget
	}

	l := t.lockOf(target)
	l.Lock()
	defer l.Unlock()

	var (
		ev         Event
		violations []error
	)

	err := t.store.Update(ctx, target, func(tx store.Tx) error {
		ev = Event{}
		violations = violations[:0]

		site, err := tx.Site()
		if err != nil {
			return err
		}

		now := CurrentTime().Truncate(time.Second)
		if now.Before(site.LastCheckedAt) {
			now = site.LastCheckedAt
		}
		site.LastCheckedAt = now

		switch verdict {
		case api.VerdictDown:
			if code == api.ErrorNone {
				code = api.ErrorConnection
			}
			site.ConsecutiveFailures++
			site.LastError = code

			if site.Status == api.StatusOnline && site.ConsecutiveFailures >= t.threshold {
				if ev, err = t.goOffline(tx, &site, now, code); errors.Is(err, store.ErrIncidentAlreadyOpen) {
					violations = append(violations, err)
				} else if err != nil {
					return err
				}
			}
		default:
			if site.Status == api.StatusOffline {
				if ev, err = t.goOnline(tx, &site, now); errors.Is(err, ErrNoOpenIncident) {
					violations = append(violations, err)
				} else if err != nil {
					return err
				}
			}
			site.ConsecutiveFailures = 0
			site.LastError = api.ErrorNone
		}

		ev.Site = site
		return tx.PutSite(site)
	})
	if err != nil {
		return Event{}, fmt.Errorf("failed to record observation of %s: %w", target, err)
	}

	for _, v := range violations {
		t.reportViolation(target, v)
	}

	if ev.Kind != EventNone {
		for _, h := range t.OnEvent {
			h(ev)
		}
	}

	return ev, nil
}

func (t *Tracker) goOffline(tx store.Tx, site *api.Site, now time.Time, code api.ErrorCode) (Event, error) {
	site.Status = api.StatusOffline

	err := tx.AppendStatusEvent(api.StatusEvent{Target: site.URL, Status: api.StatusOffline, Time: now})
	if err != nil {
		return Event{}, err
	}

	inc, err := tx.OpenIncident(now, code)
	if err != nil {
		return Event{}, err
	}

	site.LastDowntimeAt = now
	err = tx.AppendDowntime(api.DowntimeEntry{Target: site.URL, Time: now, Error: code})
	if err != nil {
		return Event{}, err
	}

	return Event{Kind: EventOpened, Incident: inc}, nil
}

func (t *Tracker) goOnline(tx store.Tx, site *api.Site, now time.Time) (Event, error) {
	site.Status = api.StatusOnline

	err := tx.AppendStatusEvent(api.StatusEvent{Target: site.URL, Status: api.StatusOnline, Time: now})
	if err != nil {
		return Event{}, err
	}

	inc, ok, err := tx.CloseOpenIncident(now)
	if err != nil {
		return Event{}, err
	}
	if !ok {
		return Event{}, ErrNoOpenIncident
	}

	return Event{Kind: EventClosed, Incident: inc}, nil
}

func (t *Tracker) reportViolation(target string, err error) {
	if t.reporter == nil {
		return
	}
	t.reporter.ReportInternalError("tracker", fmt.Sprintf("invariant violation: %s: %s", target, err))
}
