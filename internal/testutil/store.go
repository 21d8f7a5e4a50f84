package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/macrat/sitewatch/internal/store"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// Now is the current time of the fixture made by NewStore.
var Now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	// SiteA is online, and had a 1 hour incident 2 hours before Now.
	SiteA = "https://a.example.com"

	// SiteB is offline since 30 minutes before Now.
	SiteB = "https://b.example.com"

	// SiteC has never been probed.
	SiteC = "tcp://c.example.com:22"
)

func update(t testing.TB, s store.Store, target string, fn func(store.Tx) error) {
	t.Helper()

	if err := s.Update(context.Background(), target, fn); err != nil {
		t.Fatalf("failed to prepare %s: %s", target, err)
	}
}

// Populate writes the fixture into s.
func Populate(t testing.TB, s store.Store) {
	t.Helper()

	update(t, s, SiteA, func(tx store.Tx) error {
		down := Now.Add(-2 * time.Hour)
		up := Now.Add(-1 * time.Hour)

		if _, err := tx.OpenIncident(down, api.HTTPServerError(503)); err != nil {
			return err
		}
		if _, _, err := tx.CloseOpenIncident(up); err != nil {
			return err
		}
		for _, e := range []api.StatusEvent{
			{Target: SiteA, Status: api.StatusOffline, Time: down},
			{Target: SiteA, Status: api.StatusOnline, Time: up},
		} {
			if err := tx.AppendStatusEvent(e); err != nil {
				return err
			}
		}
		if err := tx.AppendDowntime(api.DowntimeEntry{Target: SiteA, Time: down, Error: api.HTTPServerError(503)}); err != nil {
			return err
		}

		site := api.NewSite(SiteA)
		site.LastDowntimeAt = down
		site.LastCheckedAt = Now.Add(-time.Minute)
		return tx.PutSite(site)
	})

	update(t, s, SiteB, func(tx store.Tx) error {
		down := Now.Add(-30 * time.Minute)

		if _, err := tx.OpenIncident(down, api.ErrorTimeout); err != nil {
			return err
		}
		if err := tx.AppendStatusEvent(api.StatusEvent{Target: SiteB, Status: api.StatusOffline, Time: down}); err != nil {
			return err
		}
		if err := tx.AppendDowntime(api.DowntimeEntry{Target: SiteB, Time: down, Error: api.ErrorTimeout}); err != nil {
			return err
		}

		site := api.NewSite(SiteB)
		site.Status = api.StatusOffline
		site.ConsecutiveFailures = 3
		site.LastError = api.ErrorTimeout
		site.LastDowntimeAt = down
		site.LastCheckedAt = Now.Add(-time.Minute)
		return tx.PutSite(site)
	})

	if err := store.Register(context.Background(), s, SiteC); err != nil {
		t.Fatalf("failed to register %s: %s", SiteC, err)
	}
}

// NewStore makes an in-memory store that has the fixture.
func NewStore(t testing.TB) store.Store {
	t.Helper()

	s := store.NewMemory()
	t.Cleanup(func() {
		s.Close()
	})

	Populate(t, s)

	return s
}
