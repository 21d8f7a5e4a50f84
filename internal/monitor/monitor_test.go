package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/macrat/sitewatch/internal/monitor"
	"github.com/macrat/sitewatch/internal/probe"
	"github.com/macrat/sitewatch/internal/schedule"
	"github.com/macrat/sitewatch/internal/store"
	"github.com/macrat/sitewatch/internal/tracker"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

type fakeProber struct {
	target  string
	verdict api.Verdict
	code    api.ErrorCode
	delay   time.Duration
	hang    bool
	panics  bool

	calls   *int32
	running *int32
	maxRun  *int32
}

func (p fakeProber) Target() string {
	return p.target
}

func (p fakeProber) Probe(ctx context.Context) api.ProbeResult {
	if p.calls != nil {
		atomic.AddInt32(p.calls, 1)
	}
	if p.running != nil {
		n := atomic.AddInt32(p.running, 1)
		defer atomic.AddInt32(p.running, -1)
		for {
			m := atomic.LoadInt32(p.maxRun)
			if n <= m || atomic.CompareAndSwapInt32(p.maxRun, m, n) {
				break
			}
		}
	}

	if p.panics {
		panic("something wrong")
	}
	if p.hang {
		time.Sleep(2 * time.Second)
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
		}
	}

	return api.ProbeResult{
		Target:    p.target,
		CheckedAt: time.Now(),
		Verdict:   p.verdict,
		Error:     p.code,
	}
}

type fakeLogger struct {
	sync.Mutex
	probes []api.ProbeResult
	errors []string
	infos  []string
}

func (l *fakeLogger) Info(scope, message string, extra map[string]interface{}) {
	l.Lock()
	defer l.Unlock()
	l.infos = append(l.infos, message)
}

func (l *fakeLogger) ReportProbe(r api.ProbeResult) {
	l.Lock()
	defer l.Unlock()
	l.probes = append(l.probes, r)
}

func (l *fakeLogger) ReportInternalError(scope, message string) {
	l.Lock()
	defer l.Unlock()
	l.errors = append(l.errors, scope+": "+message)
}

func (l *fakeLogger) Infos() []string {
	l.Lock()
	defer l.Unlock()
	return append([]string(nil), l.infos...)
}

func TestMonitor_RunCycle(t *testing.T) {
	s := store.NewMemory()
	l := &fakeLogger{}

	m := monitor.New([]probe.Prober{
		fakeProber{target: "https://a.example.com", verdict: api.VerdictUp},
		fakeProber{target: "https://b.example.com", verdict: api.VerdictDown, code: api.HTTPServerError(500)},
		fakeProber{target: "https://c.example.com", panics: true},
		fakeProber{target: "https://d.example.com", hang: true},
	}, tracker.New(s, 1, l), l)
	m.Timeout = 100 * time.Millisecond

	stime := time.Now()
	report := m.RunCycle(context.Background())
	if d := time.Since(stime); d > time.Second {
		t.Errorf("cycle should not wait for hung probe: %s", d)
	}

	type summary struct {
		Target  string
		Verdict api.Verdict
		Error   api.ErrorCode
		Event   tracker.EventKind
	}
	var actual []summary
	for _, o := range report.Outcomes {
		if o.Err != nil {
			t.Errorf("unexpected error: %s", o.Err)
		}
		actual = append(actual, summary{o.Result.Target, o.Result.Verdict, o.Result.Error, o.Event.Kind})
	}

	expect := []summary{
		{"https://a.example.com", api.VerdictUp, api.ErrorNone, tracker.EventNone},
		{"https://b.example.com", api.VerdictDown, "http_5xx:500", tracker.EventOpened},
		{"https://c.example.com", api.VerdictDown, api.ErrorConnection, tracker.EventOpened},
		{"https://d.example.com", api.VerdictDown, api.ErrorTimeout, tracker.EventOpened},
	}
	if diff := cmp.Diff(expect, actual); diff != "" {
		t.Errorf("unexpected outcomes:\n%s", diff)
	}

	if !strings.Contains(report.Outcomes[2].Result.Message, "something wrong") {
		t.Errorf("panic message should be kept: %q", report.Outcomes[2].Result.Message)
	}

	offline := []string{"https://b.example.com", "https://c.example.com", "https://d.example.com"}
	if diff := cmp.Diff(offline, report.Offline()); diff != "" {
		t.Errorf("unexpected offline targets:\n%s", diff)
	}

	l.Lock()
	if len(l.probes) != 4 {
		t.Errorf("expected 4 probe logs but got %d", len(l.probes))
	}
	l.Unlock()

	sites, _ := s.Sites(context.Background())
	if len(sites) != 4 {
		t.Errorf("expected 4 sites but got %d", len(sites))
	}
}

func TestMonitor_RunCycle_workers(t *testing.T) {
	var calls, running, maxRun int32

	var targets []probe.Prober
	for i := 0; i < 20; i++ {
		targets = append(targets, fakeProber{
			target:  fmt.Sprintf("https://%d.example.com", i),
			verdict: api.VerdictUp,
			delay:   20 * time.Millisecond,
			calls:   &calls,
			running: &running,
			maxRun:  &maxRun,
		})
	}

	l := &fakeLogger{}
	m := monitor.New(targets, tracker.New(store.NewMemory(), 1, l), l)
	m.Workers = 3

	report := m.RunCycle(context.Background())

	if calls != 20 {
		t.Errorf("expected 20 probes but got %d", calls)
	}
	if maxRun > 3 {
		t.Errorf("expected at most 3 concurrent probes but got %d", maxRun)
	}
	if len(report.Outcomes) != 20 || report.Failed() != 0 {
		t.Errorf("unexpected report: %d outcomes, %d failed", len(report.Outcomes), report.Failed())
	}
	for i, o := range report.Outcomes {
		if o.Result.Target != targets[i].Target() {
			t.Errorf("outcomes should be in the target order: %d: %s", i, o.Result.Target)
		}
	}
}

type brokenStore struct {
	store.Store
}

func (brokenStore) Update(ctx context.Context, target string, fn func(store.Tx) error) error {
	return errors.New("disk I/O error")
}

func TestMonitor_RunCycle_persistenceError(t *testing.T) {
	l := &fakeLogger{}
	m := monitor.New([]probe.Prober{
		fakeProber{target: "https://a.example.com", verdict: api.VerdictDown, code: api.ErrorTimeout},
		fakeProber{target: "https://b.example.com", verdict: api.VerdictUp},
	}, tracker.New(brokenStore{store.NewMemory()}, 1, l), l)

	report := m.RunCycle(context.Background())

	if report.Failed() != 2 {
		t.Errorf("expected 2 failures but got %d", report.Failed())
	}

	l.Lock()
	defer l.Unlock()
	if len(l.errors) != 2 || !strings.Contains(l.errors[0], "disk I/O error") {
		t.Errorf("unexpected errors: %#v", l.errors)
	}
}

func TestMonitor_RunCycle_canceled(t *testing.T) {
	s := store.NewMemory()
	l := &fakeLogger{}
	m := monitor.New([]probe.Prober{
		fakeProber{target: "https://a.example.com", verdict: api.VerdictDown, delay: time.Second},
	}, tracker.New(s, 1, l), l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := m.RunCycle(ctx)
	if !errors.Is(report.Outcomes[0].Err, context.Canceled) {
		t.Errorf("unexpected error: %v", report.Outcomes[0].Err)
	}

	if n, _ := s.IncidentCount(context.Background()); n != 0 {
		t.Errorf("canceled probe should not be recorded")
	}
}

func TestMonitor_Run(t *testing.T) {
	var calls int32

	l := &fakeLogger{}
	m := monitor.New([]probe.Prober{
		fakeProber{target: "https://a.example.com", verdict: api.VerdictUp, calls: &calls},
	}, tracker.New(store.NewMemory(), 1, l), l)

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	stime := time.Now()
	m.Run(ctx, schedule.IntervalSchedule{Interval: time.Second})
	if d := time.Since(stime); d < 2*time.Second || d > 5*time.Second {
		t.Errorf("unexpected running time: %s", d)
	}

	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Errorf("expected at least 2 cycles but got %d", n)
	}

	infos := l.Infos()
	if len(infos) == 0 || infos[0] != "start monitoring" || infos[len(infos)-1] != "stop monitoring" {
		t.Errorf("unexpected logs: %#v", infos)
	}
}

func TestDefaults(t *testing.T) {
	m := monitor.New(nil, nil, nil)
	if m.Workers != 8 || m.Timeout != 10*time.Second {
		t.Errorf("unexpected defaults: workers=%d timeout=%s", m.Workers, m.Timeout)
	}
	if report := m.RunCycle(context.Background()); len(report.Outcomes) != 0 {
		t.Errorf("unexpected outcomes: %v", report.Outcomes)
	}
}
