package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/macrat/sitewatch/internal/siteerr"
	"github.com/macrat/sitewatch/internal/tracker"
)

const (
	// SendTimeout is the deadline of each delivery.
	SendTimeout = 5 * time.Second

	// dedupeHistoryLen is the number of delivered alerts remembered for deduplication.
	dedupeHistoryLen = 4096
)

// Logger is the log handler of Dispatcher.
// Delivery failures are warnings, they never affect the health of the monitor.
type Logger interface {
	Info(scope, message string, extra map[string]interface{})
	Warn(scope, message string, extra map[string]interface{})
}

type dedupeKey struct {
	IncidentID string
	Kind       Kind
}

// Dispatcher delivers alerts to every sender in the background.
// Failures are logged, and never returned to the caller.
type Dispatcher struct {
	senders []Sender
	logger  Logger

	mu    sync.Mutex
	sent  map[dedupeKey]struct{}
	order []dedupeKey

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from alert targets.
func NewDispatcher(targets []string, l Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: l,
		sent:   make(map[dedupeKey]struct{}),
	}

	lb := siteerr.ListBuilder{Kind: ErrInvalidAlert}
	for i, t := range targets {
		s, err := NewSender(t)
		if err != nil {
			lb.Add(fmt.Sprintf("alerts[%d]", i), err)
			continue
		}
		d.senders = append(d.senders, s)
	}

	if err := lb.Build(); err != nil {
		return nil, err
	}
	return d, nil
}

// markSent reports true if the alert has not been dispatched yet.
func (d *Dispatcher) markSent(a Alert) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := dedupeKey{a.IncidentID, a.Kind}
	if _, ok := d.sent[key]; ok {
		return false
	}

	d.sent[key] = struct{}{}
	d.order = append(d.order, key)
	if len(d.order) > dedupeHistoryLen {
		delete(d.sent, d.order[0])
		d.order = d.order[1:]
	}
	return true
}

// Dispatch starts delivering the alert and returns immediately.
// An alert for the same incident and kind is delivered only once.
func (d *Dispatcher) Dispatch(a Alert) {
	if len(d.senders) == 0 || !d.markSent(a) {
		return
	}

	for _, s := range d.senders {
		d.wg.Add(1)
		go func(s Sender) {
			defer d.wg.Done()
			d.send(s, a)
		}(s)
	}
}

func (d *Dispatcher) send(s Sender, a Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()

	defer func() {
		if reason := recover(); reason != nil {
			d.logger.Warn("alert", fmt.Sprintf("%s: panic: %v", s.Target(), reason), map[string]interface{}{
				"kind":     string(a.Kind),
				"target":   a.Target,
				"incident": a.IncidentID,
				"to":       s.Target(),
			})
		}
	}()

	if err := s.Send(ctx, a); err != nil {
		d.logger.Warn("alert", fmt.Sprintf("failed to send %s alert of %s to %s: %s", a.Kind, a.Target, s.Target(), err), map[string]interface{}{
			"kind":     string(a.Kind),
			"target":   a.Target,
			"incident": a.IncidentID,
			"to":       s.Target(),
		})
		return
	}

	d.logger.Info("alert", "alert sent", map[string]interface{}{
		"kind":     string(a.Kind),
		"target":   a.Target,
		"incident": a.IncidentID,
		"to":       s.Target(),
	})
}

// HandleEvent is a tracker.EventHandler.
func (d *Dispatcher) HandleEvent(ev tracker.Event) {
	if a, ok := FromEvent(ev); ok {
		d.Dispatch(a)
	}
}

// Wait waits for all deliveries in progress.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
