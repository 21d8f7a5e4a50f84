package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/macrat/sitewatch/internal/config"
	"github.com/macrat/sitewatch/internal/probe"
	"github.com/macrat/sitewatch/internal/schedule"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Expect config.Config
		Error  string
	}{
		{
			"original",
			`{"sites": ["https://example.com", "https://example.org"], "check_interval_seconds": 30}`,
			config.Config{
				Sites:                []string{"https://example.com", "https://example.org"},
				CheckIntervalSeconds: 30,
				FailureThreshold:     1,
				ProbeTimeoutSeconds:  10,
				Workers:              8,
			},
			"",
		},
		{
			"full",
			`{
				"sites": ["tcp://localhost:22"],
				"schedule": "*/5 * * * *",
				"failure_threshold": 3,
				"probe_timeout_seconds": 5,
				"workers": 2,
				"alerts": ["https://hooks.example.com/alert"]
			}`,
			config.Config{
				Sites:                []string{"tcp://localhost:22"},
				CheckIntervalSeconds: 60,
				Schedule:             "*/5 * * * *",
				FailureThreshold:     3,
				ProbeTimeoutSeconds:  5,
				Workers:              2,
				Alerts:               []string{"https://hooks.example.com/alert"},
			},
			"",
		},
		{
			"invalid",
			`{"sites": [], "check_interval_seconds": -1, "failure_threshold": -2, "probe_timeout_seconds": -3, "workers": -4}`,
			config.Config{},
			"invalid config:\n" +
				"  sites: at least one site is required\n" +
				"  check_interval_seconds: must be greater than 0 but got -1\n" +
				"  failure_threshold: must be 1 or greater but got -2\n" +
				"  probe_timeout_seconds: must be greater than 0 but got -3\n" +
				"  workers: must be 1 or greater but got -4",
		},
		{
			"bad-sites",
			`{"sites": ["https://example.com", "https://example.com", "unknown://example.com"]}`,
			config.Config{},
			"invalid config:\n" +
				"  sites[1]: duplicated site: https://example.com\n" +
				"  sites[2]: unknown://example.com: unsupported scheme",
		},
		{
			"bad-schedule",
			`{"sites": ["https://example.com"], "schedule": "1 2 3"}`,
			config.Config{},
			"invalid config:\n" +
				"  schedule: expected 4 to 5 fields, found 3: [1 2 3]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			c, err := config.Decode(strings.NewReader(tt.Input))
			if tt.Error != "" {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				if err.Error() != tt.Error {
					t.Errorf("unexpected error:\nexpected:\n%s\nbut got:\n%s", tt.Error, err)
				}
				if !errors.Is(err, config.ErrInvalidConfig) {
					t.Errorf("error should be ErrInvalidConfig")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if diff := cmp.Diff(tt.Expect, c); diff != "" {
				t.Errorf("unexpected config:\n%s", diff)
			}
		})
	}
}

func TestDecode_invalidJSON(t *testing.T) {
	for _, input := range []string{`{"sites": "https://example.com"}`, `{"unknown": 1}`, `{`} {
		_, err := config.Decode(strings.NewReader(input))
		if !errors.Is(err, config.ErrLoadConfig) {
			t.Errorf("%s: expected ErrLoadConfig but got %v", input, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.json")
	if err := os.WriteFile(path, []byte(`{"sites": ["https://example.com"], "check_interval_seconds": 90}`), 0644); err != nil {
		t.Fatalf("failed to prepare: %s", err)
	}

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	s, err := c.ScheduleValue()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(schedule.Schedule(schedule.IntervalSchedule{Interval: 90 * time.Second}), s); diff != "" {
		t.Errorf("unexpected schedule:\n%s", diff)
	}

	if c.Timeout() != 10*time.Second {
		t.Errorf("unexpected timeout: %s", c.Timeout())
	}

	ps, err := c.Probers()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(ps) != 1 || ps[0].Target() != "https://example.com" {
		t.Errorf("unexpected probers: %v", ps)
	}
	if _, ok := ps[0].(probe.HTTPProbe); !ok {
		t.Errorf("unexpected prober type: %T", ps[0])
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "no-such-file.json")); !errors.Is(err, config.ErrLoadConfig) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected error: %v", err)
	}
}
