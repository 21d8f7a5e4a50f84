package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/macrat/sitewatch/internal/schedule"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Output string
		Error  string
	}{
		{"4values", "1 2 3 4", "1 2 3 4 ?", ""},
		{"5values", "1 2 3 4 5", "1 2 3 4 5", ""},
		{"spaces", "1  2 \t3 4", "1 2 3 4 ?", ""},
		{"3values", "1 2 3", "", "expected 4 to 5 fields, found 3: [1 2 3]"},
		{"@yearly", "@yearly", "0 0 1 1 ?", ""},
		{"@annually", "@annually", "0 0 1 1 ?", ""},
		{"@monthly", "@monthly", "0 0 1 * ?", ""},
		{"@weekly", "@weekly", "0 0 * * 0", ""},
		{"@daily", "@daily", "0 0 * * ?", ""},
		{"@hourly", "@hourly", "0 * * * ?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := schedule.ParseCron(tt.Input)
			if err != nil && err.Error() != tt.Error {
				t.Fatalf("unexpected error: expected %#v but got %#v", tt.Error, err.Error())
			}
			if err == nil && tt.Error != "" {
				t.Fatalf("expected error %#v but got nil", tt.Error)
			}

			if s.String() != tt.Output {
				t.Errorf("expected %#v but got %#v", tt.Output, s.String())
			}
		})
	}
}

func TestCronSchedule_Next(t *testing.T) {
	s, err := schedule.ParseCron("*/15 * * *")
	if err != nil {
		t.Fatalf("failed to parse: %s", err)
	}

	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	expect := time.Date(2024, 1, 2, 3, 15, 0, 0, time.UTC)
	if next := s.Next(base); !next.Equal(expect) {
		t.Errorf("expected %s but got %s", expect, next)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Output string
		Error  bool
	}{
		{"valid", "5m", "5m0s", false},
		{"hour", "1h", "1h0m0s", false},
		{"spaces", " 30s ", "30s", false},
		{"zero", "0s", "", true},
		{"negative", "-1m", "", true},
		{"invalid", "invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := schedule.ParseInterval(tt.Input)
			if (err != nil) != tt.Error {
				t.Fatalf("unexpected error: %v", err)
			}
			if err == nil && s.String() != tt.Output {
				t.Errorf("expected %#v but got %#v", tt.Output, s.String())
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	s, err := schedule.Seconds(90)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s.Interval != 90*time.Second {
		t.Errorf("unexpected interval: %s", s.Interval)
	}

	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if next := s.Next(base); !next.Equal(base.Add(90 * time.Second)) {
		t.Errorf("unexpected next time: %s", next)
	}

	if _, err := schedule.Seconds(0); !errors.Is(err, schedule.ErrNonPositiveInterval) {
		t.Errorf("expected ErrNonPositiveInterval but got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Output string
		Error  bool
	}{
		{"interval", "5m", "5m0s", false},
		{"cron", "0 0 * * ?", "0 0 * * ?", false},
		{"daily", "@daily", "0 0 * * ?", false},
		{"zero", "0s", "", true},
		{"invalid", "invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := schedule.Parse(tt.Input)
			if (err != nil) != tt.Error {
				t.Fatalf("unexpected error: %v", err)
			}
			if err == nil && s.String() != tt.Output {
				t.Errorf("expected %#v but got %#v", tt.Output, s.String())
			}
		})
	}
}

func TestIntervalSchedule_NeedKickWhenStart(t *testing.T) {
	s, _ := schedule.ParseInterval("5m")
	if !s.NeedKickWhenStart() {
		t.Error("IntervalSchedule should need kick when start")
	}
}

func TestCronSchedule_NeedKickWhenStart(t *testing.T) {
	s, _ := schedule.ParseCron("0 0 * * ?")
	if s.NeedKickWhenStart() {
		t.Error("CronSchedule should not need kick when start")
	}
}

func TestDefaultSchedule(t *testing.T) {
	if schedule.DefaultSchedule.String() != "1m0s" {
		t.Errorf("unexpected default schedule: %s", schedule.DefaultSchedule.String())
	}
}
