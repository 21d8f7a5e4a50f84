// Package logger is the log handler of sitewatch.
//
// Every entry is written by a single goroutine, to the console and optionally to a log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// CurrentTime returns current time.
// This variable is for testing purpose.
var CurrentTime = time.Now

const (
	// ErrorHistoryLen is the number of internal errors kept for Errors.
	ErrorHistoryLen = 10

	// UnhealthyPeriod is how long an internal error makes the logger report unhealthy.
	UnhealthyPeriod = 10 * time.Minute
)

type recentError struct {
	at      time.Time
	message string
}

// Logger writes log entries and remembers recent internal errors.
type Logger struct {
	path    string
	console io.Writer
	human   bool

	writeLock     sync.RWMutex
	closed        bool
	writeCh       chan<- Entry
	writerStopped chan struct{}

	errorsLock sync.RWMutex
	errors     []recentError
}

// New creates a Logger.
// The path can be empty to write only to the console.
func New(path string, console io.Writer) (*Logger, error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	ch := make(chan Entry, 32)

	l := &Logger{
		path:          path,
		console:       console,
		human:         isTerminal(console),
		writeCh:       ch,
		writerStopped: make(chan struct{}),
	}

	go l.writer(ch)

	return l, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Path returns path to the log file.
func (l *Logger) Path() string {
	return l.path
}

func (l *Logger) format(e Entry) string {
	if l.human {
		return e.String() + "\n"
	}

	bs, err := json.Marshal(e)
	if err != nil {
		e.Extra = nil
		bs, _ = json.Marshal(e)
	}
	return string(bs) + "\n"
}

func (l *Logger) writer(ch <-chan Entry) {
	defer close(l.writerStopped)

	var reader strings.Reader

	for e := range ch {
		msg := l.format(e)

		reader.Reset(msg)
		reader.WriteTo(l.console)

		if l.path == "" {
			continue
		}

		if err := l.appendFile(msg); err != nil {
			l.addError("failed to write log file")
			reader.Reset(l.format(Entry{
				Time:    CurrentTime(),
				Level:   LevelError,
				Scope:   "log",
				Message: err.Error(),
			}))
			reader.WriteTo(l.console)
		}
	}
}

func (l *Logger) appendFile(msg string) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	_, err = f.WriteString(msg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Write queues an entry.
// Entries after Close are discarded.
func (l *Logger) Write(e Entry) {
	if e.Time.IsZero() {
		e.Time = CurrentTime()
	}

	l.writeLock.RLock()
	defer l.writeLock.RUnlock()

	if !l.closed {
		l.writeCh <- e
	}
}

// Info writes an informational entry.
func (l *Logger) Info(scope, message string, extra map[string]interface{}) {
	l.Write(Entry{Level: LevelInfo, Scope: scope, Message: message, Extra: extra})
}

// Warn writes a warning entry.
func (l *Logger) Warn(scope, message string, extra map[string]interface{}) {
	l.Write(Entry{Level: LevelWarn, Scope: scope, Message: message, Extra: extra})
}

// ReportInternalError writes an error entry, and remembers it for Errors.
func (l *Logger) ReportInternalError(scope, message string) {
	l.addError(fmt.Sprintf("%s: %s", scope, message))
	l.Write(Entry{Level: LevelError, Scope: scope, Message: message})
}

// ReportProbe writes the result of a probe.
func (l *Logger) ReportProbe(r api.ProbeResult) {
	extra := map[string]interface{}{
		"target":  r.Target,
		"verdict": r.Verdict.String(),
		"latency": float64(r.Latency.Microseconds()) / 1000,
	}
	if r.Error != api.ErrorNone {
		extra["error"] = string(r.Error)
	}

	level := LevelInfo
	if r.Verdict == api.VerdictDown {
		level = LevelWarn
	}

	l.Write(Entry{
		Time:    r.CheckedAt,
		Level:   level,
		Scope:   "probe",
		Message: r.Message,
		Extra:   extra,
	})
}

func (l *Logger) addError(message string) {
	l.errorsLock.Lock()
	defer l.errorsLock.Unlock()

	l.errors = append(l.errors, recentError{CurrentTime(), message})

	if len(l.errors) > ErrorHistoryLen {
		l.errors = l.errors[1:]
	}
}

// Errors returns the health status and recent internal errors.
// It reports unhealthy while the latest error is newer than UnhealthyPeriod.
func (l *Logger) Errors() (healthy bool, messages []string) {
	l.errorsLock.RLock()
	defer l.errorsLock.RUnlock()

	healthy = true
	if len(l.errors) > 0 && CurrentTime().Sub(l.errors[len(l.errors)-1].at) < UnhealthyPeriod {
		healthy = false
	}

	messages = make([]string, len(l.errors))
	for i, e := range l.errors {
		messages[i] = fmt.Sprintf("%s\t%s", e.at.Format(time.RFC3339), e.message)
	}

	return healthy, messages
}

// Close flushes queued entries and stops the writer.
func (l *Logger) Close() error {
	l.writeLock.Lock()
	if l.closed {
		l.writeLock.Unlock()
		return nil
	}
	l.closed = true
	close(l.writeCh)
	l.writeLock.Unlock()

	<-l.writerStopped
	return nil
}
