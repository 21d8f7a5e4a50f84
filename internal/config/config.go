// Package config loads the sitewatch configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/macrat/sitewatch/internal/probe"
	"github.com/macrat/sitewatch/internal/schedule"
	"github.com/macrat/sitewatch/internal/siteerr"
)

const (
	DefaultInterval  = 60
	DefaultThreshold = 1
	DefaultTimeout   = 10
	DefaultWorkers   = 8
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("failed to load config")
)

// Config is the content of the configuration file.
type Config struct {
	Sites                []string `json:"sites"`
	CheckIntervalSeconds int      `json:"check_interval_seconds"`

	// Schedule is a duration or a cron spec. It overrides CheckIntervalSeconds if set.
	Schedule string `json:"schedule,omitempty"`

	FailureThreshold    int      `json:"failure_threshold"`
	ProbeTimeoutSeconds int      `json:"probe_timeout_seconds"`
	Workers             int      `json:"workers"`
	Alerts              []string `json:"alerts,omitempty"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, siteerr.New(ErrLoadConfig, err, "")
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

// Decode parses a configuration, fills defaults, and validates it.
func Decode(r io.Reader) (Config, error) {
	var c Config

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, siteerr.New(ErrLoadConfig, err, "")
	}

	c.SetDefaults()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// SetDefaults replaces zero values with the default values.
func (c *Config) SetDefaults() {
	if c.CheckIntervalSeconds == 0 {
		c.CheckIntervalSeconds = DefaultInterval
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultThreshold
	}
	if c.ProbeTimeoutSeconds == 0 {
		c.ProbeTimeoutSeconds = DefaultTimeout
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate reports all problems of the config at once.
func (c Config) Validate() error {
	lb := siteerr.ListBuilder{Kind: ErrInvalidConfig}

	if len(c.Sites) == 0 {
		lb.Addf("sites", "at least one site is required")
	}

	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		if seen[s] {
			lb.Addf(fmt.Sprintf("sites[%d]", i), "duplicated site: %s", s)
			continue
		}
		seen[s] = true

		if _, err := probe.New(s); err != nil {
			lb.Add(fmt.Sprintf("sites[%d]", i), err)
		}
	}

	if c.Schedule != "" {
		if _, err := schedule.Parse(c.Schedule); err != nil {
			lb.Add("schedule", err)
		}
	} else if c.CheckIntervalSeconds <= 0 {
		lb.Addf("check_interval_seconds", "must be greater than 0 but got %d", c.CheckIntervalSeconds)
	}

	if c.FailureThreshold < 1 {
		lb.Addf("failure_threshold", "must be 1 or greater but got %d", c.FailureThreshold)
	}
	if c.ProbeTimeoutSeconds <= 0 {
		lb.Addf("probe_timeout_seconds", "must be greater than 0 but got %d", c.ProbeTimeoutSeconds)
	}
	if c.Workers < 1 {
		lb.Addf("workers", "must be 1 or greater but got %d", c.Workers)
	}

	return lb.Build()
}

// ScheduleValue returns the schedule of cycles.
func (c Config) ScheduleValue() (schedule.Schedule, error) {
	if c.Schedule != "" {
		return schedule.Parse(c.Schedule)
	}
	if c.CheckIntervalSeconds == 0 {
		return schedule.DefaultSchedule, nil
	}
	return schedule.Seconds(c.CheckIntervalSeconds)
}

// Timeout returns the deadline of each probe.
func (c Config) Timeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// Probers creates probers of the sites in the configured order.
func (c Config) Probers() ([]probe.Prober, error) {
	ps := make([]probe.Prober, 0, len(c.Sites))
	lb := siteerr.ListBuilder{Kind: ErrInvalidConfig}

	for i, s := range c.Sites {
		p, err := probe.New(s)
		if err != nil {
			lb.Add(fmt.Sprintf("sites[%d]", i), err)
			continue
		}
		ps = append(ps, p)
	}

	if err := lb.Build(); err != nil {
		return nil, err
	}
	return ps, nil
}
