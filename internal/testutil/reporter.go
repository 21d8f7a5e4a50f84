package testutil

import (
	"sync"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// DummyLogger records log calls.
// It reports unhealthy after any internal error.
type DummyLogger struct {
	sync.Mutex

	Infos          []string
	Warns          []string
	InternalErrors []string
	Probes         []api.ProbeResult
}

func (l *DummyLogger) Info(scope, message string, extra map[string]interface{}) {
	l.Lock()
	defer l.Unlock()
	l.Infos = append(l.Infos, scope+": "+message)
}

func (l *DummyLogger) Warn(scope, message string, extra map[string]interface{}) {
	l.Lock()
	defer l.Unlock()
	l.Warns = append(l.Warns, scope+": "+message)
}

func (l *DummyLogger) ReportInternalError(scope, message string) {
	l.Lock()
	defer l.Unlock()
	l.InternalErrors = append(l.InternalErrors, scope+": "+message)
}

func (l *DummyLogger) ReportProbe(r api.ProbeResult) {
	l.Lock()
	defer l.Unlock()
	l.Probes = append(l.Probes, r)
}

func (l *DummyLogger) Errors() (healthy bool, messages []string) {
	l.Lock()
	defer l.Unlock()
	return len(l.InternalErrors) == 0, append([]string{}, l.InternalErrors...)
}
