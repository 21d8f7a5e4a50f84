// Package logconv converts the incident ledger into exportable formats.
package logconv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// Header is the column names of the exported incidents.
var Header = []string{"id", "url", "error", "starts_at", "ends_at", "duration_seconds"}

func incidentRow(x api.Incident) []string {
	ends, duration := "", ""
	if !x.IsOpen() {
		ends = x.EndsAt.Format(time.RFC3339)
		duration = strconv.FormatInt(*x.DurationSeconds(), 10)
	}

	return []string{
		x.ID,
		x.Target,
		string(x.Error),
		x.StartsAt.Format(time.RFC3339),
		ends,
		duration,
	}
}

// ToCSV writes incidents as CSV.
// The ends_at and duration_seconds are empty while the incident is open.
func ToCSV(w io.Writer, incidents []api.Incident) error {
	c := csv.NewWriter(w)

	if err := c.Write(Header); err != nil {
		return err
	}

	for _, x := range incidents {
		if err := c.Write(incidentRow(x)); err != nil {
			return err
		}
	}

	c.Flush()

	return c.Error()
}
