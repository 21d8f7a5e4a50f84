package store

import (
	"time"

	"github.com/google/uuid"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// newIncident makes a new open incident with a random ID.
func newIncident(target string, at time.Time, code api.ErrorCode) (api.Incident, error) {
	return api.NewIncident(uuid.New().String(), target, at, code)
}

type byIncidentStart []api.Incident

func (xs byIncidentStart) Len() int {
	return len(xs)
}

func (xs byIncidentStart) Less(i, j int) bool {
	if xs[i].StartsAt.Equal(xs[j].StartsAt) {
		return xs[i].ID < xs[j].ID
	}
	return xs[i].StartsAt.Before(xs[j].StartsAt)
}

func (xs byIncidentStart) Swap(i, j int) {
	xs[i], xs[j] = xs[j], xs[i]
}

func limitOf(n, limit int) int {
	if limit < 1 || limit > n {
		return n
	}
	return limit
}
