// Package store is the database of sitewatch.
//
// It keeps the current state of each site, the incident ledger, the status timeline, and the downtime log.
// Everything a single observation changes is written in one Update call, so readers never see a half-applied transition.
package store

import (
	"context"
	"errors"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	// ErrIncidentAlreadyOpen means the site already has an open incident.
	ErrIncidentAlreadyOpen = errors.New("incident is already open")

	// ErrTargetMismatch means a transaction tried to write a row of another site.
	ErrTargetMismatch = errors.New("target does not match to the transaction")
)

// Tx is a transaction bound to a single site.
type Tx interface {
	// Site returns the current row of the site, or a new online row if the site has never been seen.
	Site() (api.Site, error)

	PutSite(api.Site) error

	// OpenIncident starts a new incident of the site.
	// It returns ErrIncidentAlreadyOpen if the site already has an open incident.
	OpenIncident(at time.Time, code api.ErrorCode) (api.Incident, error)

	// CloseOpenIncident closes the open incident of the site.
	// The ok is false if there is no open incident.
	CloseOpenIncident(at time.Time) (closed api.Incident, ok bool, err error)

	AppendStatusEvent(api.StatusEvent) error
	AppendDowntime(api.DowntimeEntry) error
}

// Store is the interface of the sitewatch database.
type Store interface {
	// Update runs fn in a transaction of the target.
	// Nothing is written if fn returns an error.
	Update(ctx context.Context, target string, fn func(Tx) error) error

	// Site returns the row of the target. The ok is false if the target has never been stored.
	Site(ctx context.Context, target string) (site api.Site, ok bool, err error)

	// Sites returns all sites ordered by URL.
	Sites(ctx context.Context) ([]api.Site, error)

	// IncidentsOverlapping returns incidents of the target that intersect with [since, until], ordered by the start time.
	// Incidents that are still open are treated as continuing until the until.
	IncidentsOverlapping(ctx context.Context, target string, since, until time.Time) ([]api.Incident, error)

	// RecentIncidents returns incidents of all sites, newest start first.
	// A limit less than 1 means no limit.
	RecentIncidents(ctx context.Context, limit int) ([]api.Incident, error)

	// RecentDowntimes returns the downtime log, newest first.
	// A limit less than 1 means no limit.
	RecentDowntimes(ctx context.Context, limit int) ([]api.DowntimeEntry, error)

	// StatusEvents returns the status timeline of the target since the given time, in the order they were appended.
	StatusEvents(ctx context.Context, target string, since time.Time) ([]api.StatusEvent, error)

	// IncidentCount returns the number of incidents ever opened.
	IncidentCount(ctx context.Context) (int, error)

	Close() error
}

// Register stores the initial row of targets that are not stored yet.
func Register(ctx context.Context, s Store, targets ...string) error {
	for _, t := range targets {
		err := s.Update(ctx, t, func(tx Tx) error {
			site, err := tx.Site()
			if err != nil {
				return err
			}
			return tx.PutSite(site)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Open opens a Store.
// The path ":memory:", "-", or empty string means an in-memory store.
func Open(path string) (Store, error) {
	switch path {
	case "", "-", ":memory:":
		return NewMemory(), nil
	default:
		return OpenSQLite(path)
	}
}
