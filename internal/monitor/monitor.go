// Package monitor runs probe cycles and feeds the results to the tracker.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/macrat/sitewatch/internal/probe"
	"github.com/macrat/sitewatch/internal/schedule"
	"github.com/macrat/sitewatch/internal/tracker"
	api "github.com/macrat/sitewatch/lib-sitewatch"
	"github.com/robfig/cron/v3"
)

const (
	DefaultWorkers = 8
	DefaultTimeout = 10 * time.Second
)

// Logger is the log handler of Monitor.
type Logger interface {
	Info(scope, message string, extra map[string]interface{})
	ReportProbe(api.ProbeResult)
	ReportInternalError(scope, message string)
}

// Monitor probes every target in each cycle.
type Monitor struct {
	targets []probe.Prober
	tracker *tracker.Tracker
	logger  Logger

	// Workers is the number of probes that run at the same time.
	Workers int

	// Timeout is the deadline of each probe.
	Timeout time.Duration
}

// New creates a Monitor with the default workers and timeout.
func New(targets []probe.Prober, t *tracker.Tracker, l Logger) *Monitor {
	return &Monitor{
		targets: targets,
		tracker: t,
		logger:  l,
		Workers: DefaultWorkers,
		Timeout: DefaultTimeout,
	}
}

// Targets returns the target strings in the configured order.
func (m *Monitor) Targets() []string {
	ss := make([]string, len(m.targets))
	for i, p := range m.targets {
		ss[i] = p.Target()
	}
	return ss
}

// Outcome is what happened to a target in a cycle.
type Outcome struct {
	Result api.ProbeResult
	Event  tracker.Event

	// Err is set if the observation could not be recorded. The target will be retried in the next cycle.
	Err error
}

// CycleReport is the summary of a cycle.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration

	// Outcomes are in the same order as the targets.
	Outcomes []Outcome
}

// Offline returns targets that are offline after the cycle.
func (r CycleReport) Offline() []string {
	var ss []string
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Event.Site.Status == api.StatusOffline {
			ss = append(ss, o.Result.Target)
		}
	}
	return ss
}

// Failed returns the number of targets that could not be recorded.
func (r CycleReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func (m *Monitor) workers() int {
	if m.Workers < 1 {
		return DefaultWorkers
	}
	return m.Workers
}

func (m *Monitor) timeout() time.Duration {
	if m.Timeout <= 0 {
		return DefaultTimeout
	}
	return m.Timeout
}

// RunCycle probes all targets once, and records the results.
// It returns after all workers finished or gave up on the deadline.
func (m *Monitor) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, len(m.targets)),
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < m.workers() && i < len(m.targets); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				report.Outcomes[idx] = m.check(ctx, m.targets[idx])
			}
		}()
	}

	for i := range m.targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (m *Monitor) check(ctx context.Context, p probe.Prober) Outcome {
	r := m.probe(ctx, p)

	if ctx.Err() != nil {
		return Outcome{Result: r, Err: ctx.Err()}
	}

	m.logger.ReportProbe(r)

	ev, err := m.tracker.Observe(ctx, r.Target, r.Verdict, r.Error)
	if err != nil {
		m.logger.ReportInternalError("monitor", err.Error())
		return Outcome{Result: r, Err: err}
	}

	return Outcome{Result: r, Event: ev}
}

func panicResult(target string, startedAt time.Time, reason interface{}) api.ProbeResult {
	return api.ProbeResult{
		Target:    target,
		CheckedAt: startedAt,
		Latency:   time.Since(startedAt),
		Verdict:   api.VerdictDown,
		Error:     api.ErrorConnection,
		Message:   fmt.Sprintf("probe panicked: %v", reason),
	}
}

// probe runs the Prober with a deadline.
// It gives up waiting when the deadline exceeded even if the Prober ignores ctx.
func (m *Monitor) probe(ctx context.Context, p probe.Prober) api.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()

	startedAt := time.Now()
	ch := make(chan api.ProbeResult, 1)

	go func() {
		defer func() {
			if reason := recover(); reason != nil {
				ch <- panicResult(p.Target(), startedAt, reason)
			}
		}()
		ch <- p.Probe(ctx)
	}()

	select {
	case r := <-ch:
		if r.Target == "" {
			r.Target = p.Target()
		}
		return r
	case <-ctx.Done():
		return api.ProbeResult{
			Target:    p.Target(),
			CheckedAt: startedAt,
			Latency:   time.Since(startedAt),
			Verdict:   api.VerdictDown,
			Error:     api.ErrorTimeout,
			Message:   "probe timed out",
		}
	}
}

// Run runs cycles on the schedule until ctx is canceled.
// A cycle is skipped if the previous one is still running.
func (m *Monitor) Run(ctx context.Context, s schedule.Schedule) {
	cl := cronLogger{m.logger}

	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		report := m.RunCycle(ctx)
		m.logger.Info("monitor", "cycle finished", map[string]interface{}{
			"targets":  len(report.Outcomes),
			"offline":  len(report.Offline()),
			"failed":   report.Failed(),
			"duration": report.Duration.String(),
		})
	}))

	c := cron.New(cron.WithLogger(cl))
	c.Schedule(s, job)
	c.Start()

	m.logger.Info("monitor", "start monitoring", map[string]interface{}{
		"schedule": s.String(),
		"targets":  len(m.targets),
	})

	var kicked sync.WaitGroup
	if s.NeedKickWhenStart() {
		kicked.Add(1)
		go func() {
			defer kicked.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	<-c.Stop().Done()
	kicked.Wait()

	m.logger.Info("monitor", "stop monitoring", nil)
}

// cronLogger forwards logs of cron to Logger.
// Only skipped runs and errors are reported, the other messages are too noisy.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Info("monitor", "skip cycle because the previous cycle is still running", nil)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.ReportInternalError("monitor", fmt.Sprintf("%s: %s", msg, err))
}
