package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/macrat/sitewatch/internal/availability"
	"github.com/macrat/sitewatch/internal/store"
	"github.com/macrat/sitewatch/internal/tracker"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

const target = "https://example.com"

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestCalculator_noIncident(t *testing.T) {
	s := store.NewMemory()
	c := availability.Calculator{Store: s, Now: func() time.Time { return t0 }}

	a, err := c.ComputeUptime(context.Background(), target, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(api.Availability{UptimePercent: 100, DowntimeSeconds: 0, Incidents: 0}, a); diff != "" {
		t.Errorf("unexpected availability:\n%s", diff)
	}

	if _, err := c.ComputeUptime(context.Background(), target, 0); !errors.Is(err, availability.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow but got %v", err)
	}
}

func TestWindowOfSeconds(t *testing.T) {
	tests := []struct {
		Input  int64
		Output time.Duration
		Error  error
	}{
		{1, time.Second, nil},
		{3600, time.Hour, nil},
		{availability.MaxWindowSeconds, time.Duration(availability.MaxWindowSeconds) * time.Second, nil},
		{0, 0, availability.ErrInvalidWindow},
		{-1, 0, availability.ErrInvalidWindow},
		{availability.MaxWindowSeconds + 1, 0, availability.ErrWindowTooLong},
		{10000000000, 0, availability.ErrWindowTooLong},
		{18446744074, 0, availability.ErrWindowTooLong},
	}

	for _, tt := range tests {
		d, err := availability.WindowOfSeconds(tt.Input)
		if !errors.Is(err, tt.Error) {
			t.Errorf("%d: expected error %v but got %v", tt.Input, tt.Error, err)
		}
		if d != tt.Output {
			t.Errorf("%d: expected %s but got %s", tt.Input, tt.Output, d)
		}
	}
}

func TestCalculator_longestWindow(t *testing.T) {
	s := store.NewMemory()
	at := t0.Add(-time.Hour)
	err := s.Update(context.Background(), target, func(tx store.Tx) error {
		if _, err := tx.OpenIncident(at, api.ErrorTimeout); err != nil {
			return err
		}
		_, _, err := tx.CloseOpenIncident(at.Add(10 * time.Minute))
		return err
	})
	if err != nil {
		t.Fatalf("failed to prepare incident: %s", err)
	}

	c := availability.Calculator{Store: s, Now: func() time.Time { return t0 }}

	window, err := availability.WindowOfSeconds(availability.MaxWindowSeconds)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	a, err := c.ComputeUptime(context.Background(), target, window)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if a.DowntimeSeconds != 600 || a.Incidents != 1 {
		t.Errorf("the incident should be counted in the longest window: %+v", a)
	}
}

func TestCalculator_scenario(t *testing.T) {
	now := t0
	orig := tracker.CurrentTime
	tracker.CurrentTime = func() time.Time { return now }
	defer func() { tracker.CurrentTime = orig }()

	s := store.NewMemory()
	tr := tracker.New(s, 3, nil)
	ctx := context.Background()

	for _, sec := range []int{10, 20, 30} {
		now = t0.Add(time.Duration(sec) * time.Second)
		if _, err := tr.Observe(ctx, target, api.VerdictDown, api.ErrorTimeout); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	now = t0.Add(40 * time.Second)
	ev, err := tr.Observe(ctx, target, api.VerdictUp, api.ErrorNone)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ev.Kind != tracker.EventClosed {
		t.Fatalf("expected closed event but got %s", ev.Kind)
	}
	if d := ev.Incident.DurationSeconds(); d == nil || *d != 10 {
		t.Fatalf("unexpected duration: %v", d)
	}

	c := availability.Calculator{Store: s, Now: func() time.Time { return t0.Add(time.Hour) }}

	a, err := c.ComputeUptime(ctx, target, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	expect := api.Availability{UptimePercent: 99.722, DowntimeSeconds: 10, Incidents: 1}
	if diff := cmp.Diff(expect, a); diff != "" {
		t.Errorf("unexpected availability:\n%s", diff)
	}

	again, err := c.ComputeUptime(ctx, target, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(a, again); diff != "" {
		t.Errorf("result should be idempotent:\n%s", diff)
	}
}

func TestCalculator_openIncident(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	err := s.Update(ctx, target, func(tx store.Tx) error {
		_, err := tx.OpenIncident(t0.Add(-2*time.Hour), api.ErrorConnection)
		return err
	})
	if err != nil {
		t.Fatalf("failed to prepare: %s", err)
	}

	c := availability.Calculator{Store: s, Now: func() time.Time { return t0 }}

	a, err := c.ComputeUptime(ctx, target, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(api.Availability{UptimePercent: 0, DowntimeSeconds: 3600, Incidents: 1}, a); diff != "" {
		t.Errorf("unexpected availability:\n%s", diff)
	}

	std, err := c.Standard(ctx, target)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	expect := map[string]api.Availability{
		"24h": {UptimePercent: 91.667, DowntimeSeconds: 7200, Incidents: 1},
		"7d":  {UptimePercent: 98.81, DowntimeSeconds: 7200, Incidents: 1},
		"30d": {UptimePercent: 99.722, DowntimeSeconds: 7200, Incidents: 1},
	}
	if diff := cmp.Diff(expect, std); diff != "" {
		t.Errorf("unexpected standard availability:\n%s", diff)
	}
}

func TestCalculator_growingWindow(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	for _, span := range [][2]time.Duration{{-50 * time.Hour, -49 * time.Hour}, {-3 * time.Hour, -2 * time.Hour}, {-10 * time.Minute, -5 * time.Minute}} {
		err := s.Update(ctx, target, func(tx store.Tx) error {
			if _, err := tx.OpenIncident(t0.Add(span[0]), api.ErrorTimeout); err != nil {
				return err
			}
			_, _, err := tx.CloseOpenIncident(t0.Add(span[1]))
			return err
		})
		if err != nil {
			t.Fatalf("failed to prepare: %s", err)
		}
	}

	c := availability.Calculator{Store: s, Now: func() time.Time { return t0 }}

	var prev int64
	for _, w := range []time.Duration{time.Minute, 10 * time.Minute, time.Hour, 3 * time.Hour, 24 * time.Hour, 48 * time.Hour, 50 * time.Hour} {
		a, err := c.ComputeUptime(ctx, target, w)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if a.UptimePercent < 0 || a.UptimePercent > 100 {
			t.Errorf("%s: uptime out of range: %f", w, a.UptimePercent)
		}
		if a.DowntimeSeconds < 0 || a.DowntimeSeconds > int64(w/time.Second) {
			t.Errorf("%s: downtime out of range: %d", w, a.DowntimeSeconds)
		}
		if a.DowntimeSeconds < prev {
			t.Errorf("%s: downtime decreased from %d to %d", w, prev, a.DowntimeSeconds)
		}
		prev = a.DowntimeSeconds
	}
}

func TestCalculator_All(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	if err := store.Register(ctx, s, "https://a.example.com", "https://b.example.com"); err != nil {
		t.Fatalf("failed to register: %s", err)
	}

	c := availability.Calculator{Store: s, Now: func() time.Time { return t0 }}
	all, err := c.All(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	full := map[string]api.Availability{
		"24h": api.FullAvailability,
		"7d":  api.FullAvailability,
		"30d": api.FullAvailability,
	}
	expect := map[string]map[string]api.Availability{
		"https://a.example.com": full,
		"https://b.example.com": full,
	}
	if diff := cmp.Diff(expect, all); diff != "" {
		t.Errorf("unexpected result:\n%s", diff)
	}
}
