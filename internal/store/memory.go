package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var errMemoryClosed = errors.New("store is already closed")

// Memory is a Store that keeps everything on memory.
// It is used for tests and oneshot runs.
type Memory struct {
	mu sync.RWMutex

	closed    bool
	sites     map[string]api.Site
	incidents []api.Incident
	byTarget  map[string][]int
	open      map[string]int
	events    []api.StatusEvent
	downtimes []api.DowntimeEntry
}

// NewMemory creates an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		sites:    make(map[string]api.Site),
		byTarget: make(map[string][]int),
		open:     make(map[string]int),
	}
}

type memoryTx struct {
	m      *Memory
	target string

	site      *api.Site
	closed    *api.Incident
	opened    *api.Incident
	events    []api.StatusEvent
	downtimes []api.DowntimeEntry
}

func (tx *memoryTx) Site() (api.Site, error) {
	if tx.site != nil {
		return *tx.site, nil
	}
	if s, ok := tx.m.sites[tx.target]; ok {
		return s, nil
	}
	return api.NewSite(tx.target), nil
}

func (tx *memoryTx) PutSite(s api.Site) error {
	if s.URL != tx.target {
		return ErrTargetMismatch
	}
	tx.site = &s
	return nil
}

func (tx *memoryTx) currentOpen() (api.Incident, bool) {
	if tx.opened != nil {
		return *tx.opened, tx.opened.IsOpen()
	}
	if tx.closed != nil {
		return api.Incident{}, false
	}
	if idx, ok := tx.m.open[tx.target]; ok {
		return tx.m.incidents[idx], true
	}
	return api.Incident{}, false
}

func (tx *memoryTx) OpenIncident(at time.Time, code api.ErrorCode) (api.Incident, error) {
	if _, ok := tx.currentOpen(); ok {
		return api.Incident{}, ErrIncidentAlreadyOpen
	}

	inc, err := newIncident(tx.target, at, code)
	if err != nil {
		return api.Incident{}, err
	}
	tx.opened = &inc
	return inc, nil
}

func (tx *memoryTx) CloseOpenIncident(at time.Time) (api.Incident, bool, error) {
	inc, ok := tx.currentOpen()
	if !ok {
		return api.Incident{}, false, nil
	}

	closed, err := inc.Close(at)
	if err != nil {
		return api.Incident{}, true, err
	}

	if tx.opened != nil {
		tx.opened = &closed
	} else {
		tx.closed = &closed
	}
	return closed, true, nil
}

func (tx *memoryTx) AppendStatusEvent(e api.StatusEvent) error {
	if e.Target != tx.target {
		return ErrTargetMismatch
	}
	tx.events = append(tx.events, e)
	return nil
}

func (tx *memoryTx) AppendDowntime(e api.DowntimeEntry) error {
	if e.Target != tx.target {
		return ErrTargetMismatch
	}
	tx.downtimes = append(tx.downtimes, e)
	return nil
}

func (tx *memoryTx) commit() {
	m := tx.m

	if tx.site != nil {
		m.sites[tx.target] = *tx.site
	}

	if tx.closed != nil {
		idx := m.open[tx.target]
		m.incidents[idx] = *tx.closed
		delete(m.open, tx.target)
	}

	if tx.opened != nil {
		idx := len(m.incidents)
		m.incidents = append(m.incidents, *tx.opened)
		m.byTarget[tx.target] = append(m.byTarget[tx.target], idx)
		if tx.opened.IsOpen() {
			m.open[tx.target] = idx
		}
	}

	m.events = append(m.events, tx.events...)
	m.downtimes = append(m.downtimes, tx.downtimes...)
}

// Update implements Store.
// Transactions are serialized, and changes become visible to readers only after fn succeeded.
func (m *Memory) Update(ctx context.Context, target string, fn func(Tx) error) error {
	if target == "" {
		return api.ErrEmptyTarget
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errMemoryClosed
	}

	tx := &memoryTx{m: m, target: target}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()

	return nil
}

func (m *Memory) Site(ctx context.Context, target string) (api.Site, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sites[target]
	return s, ok, nil
}

func (m *Memory) Sites(ctx context.Context) ([]api.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	xs := make([]api.Site, 0, len(m.sites))
	for _, s := range m.sites {
		xs = append(xs, s)
	}
	sort.Slice(xs, func(i, j int) bool {
		return xs[i].URL < xs[j].URL
	})
	return xs, nil
}

func (m *Memory) IncidentsOverlapping(ctx context.Context, target string, since, until time.Time) ([]api.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var xs []api.Incident
	for _, idx := range m.byTarget[target] {
		if inc := m.incidents[idx]; inc.Overlaps(since, until) {
			xs = append(xs, inc)
		}
	}
	sort.Sort(byIncidentStart(xs))
	return xs, nil
}

func (m *Memory) RecentIncidents(ctx context.Context, limit int) ([]api.Incident, error) {
	m.mu.RLock()
	xs := make([]api.Incident, len(m.incidents))
	copy(xs, m.incidents)
	m.mu.RUnlock()

	sort.Sort(sort.Reverse(byIncidentStart(xs)))
	return xs[:limitOf(len(xs), limit)], nil
}

func (m *Memory) RecentDowntimes(ctx context.Context, limit int) ([]api.DowntimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := limitOf(len(m.downtimes), limit)
	xs := make([]api.DowntimeEntry, 0, n)
	for i := len(m.downtimes) - 1; i >= 0 && len(xs) < n; i-- {
		xs = append(xs, m.downtimes[i])
	}
	return xs, nil
}

func (m *Memory) StatusEvents(ctx context.Context, target string, since time.Time) ([]api.StatusEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var xs []api.StatusEvent
	for _, e := range m.events {
		if e.Target == target && !e.Time.Before(since) {
			xs = append(xs, e)
		}
	}
	return xs, nil
}

func (m *Memory) IncidentCount(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.incidents), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}
