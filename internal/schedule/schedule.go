// Package schedule decides when the monitor runs a cycle.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	DefaultSchedule = Schedule(IntervalSchedule{time.Minute})

	ErrNonPositiveInterval = errors.New("interval must be greater than 0")
)

// Schedule is a cron.Schedule that can describe itself.
type Schedule interface {
	cron.Schedule
	fmt.Stringer

	// NeedKickWhenStart reports whether the monitor should run a cycle right after start.
	NeedKickWhenStart() bool
}

// Parse parses either a duration like "30s" or a cron spec like "*/5 * * * *".
func Parse(spec string) (Schedule, error) {
	if s, err := ParseInterval(spec); err == nil {
		return s, nil
	} else if errors.Is(err, ErrNonPositiveInterval) {
		return nil, err
	}

	return ParseCron(spec)
}

// IntervalSchedule runs a cycle every fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// ParseInterval parses a duration string like "1m30s".
func ParseInterval(spec string) (IntervalSchedule, error) {
	d, err := time.ParseDuration(strings.TrimSpace(spec))
	if err != nil {
		return IntervalSchedule{}, err
	}
	if d <= 0 {
		return IntervalSchedule{}, fmt.Errorf("%w: %s", ErrNonPositiveInterval, spec)
	}
	return IntervalSchedule{d}, nil
}

// Seconds makes an IntervalSchedule from check_interval_seconds.
func Seconds(n int) (IntervalSchedule, error) {
	if n <= 0 {
		return IntervalSchedule{}, fmt.Errorf("%w: %d", ErrNonPositiveInterval, n)
	}
	return IntervalSchedule{time.Duration(n) * time.Second}, nil
}

func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return s.Interval.String()
}

func (s IntervalSchedule) NeedKickWhenStart() bool {
	return true
}

// CronSchedule runs a cycle at the times a cron spec matches.
// The day-of-week field is optional.
type CronSchedule struct {
	spec     string
	schedule cron.Schedule
}

var cronDelimiter = regexp.MustCompile("[ \t]+")

func ParseCron(spec string) (CronSchedule, error) {
	switch spec {
	case "@yearly", "@annually":
		spec = "0 0 1 1 ?"
	case "@monthly":
		spec = "0 0 1 * ?"
	case "@weekly":
		spec = "0 0 * * 0"
	case "@daily":
		spec = "0 0 * * ?"
	case "@hourly":
		spec = "0 * * * ?"
	default:
		ss := cronDelimiter.Split(strings.TrimSpace(spec), -1)
		if len(ss) == 4 {
			ss = append(ss, "?")
		}
		spec = strings.Join(ss, " ")
	}

	s, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional).Parse(spec)
	if err != nil {
		return CronSchedule{}, err
	}
	return CronSchedule{
		spec:     spec,
		schedule: s,
	}, nil
}

func (s CronSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s CronSchedule) String() string {
	return s.spec
}

func (s CronSchedule) NeedKickWhenStart() bool {
	return false
}
