package logconv

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// IncidentsReport is the JSON form of exported incidents.
type IncidentsReport struct {
	Incidents  []api.Incident `json:"incidents"`
	ReportedAt string         `json:"reported_at"`
}

// NewIncidentsReport makes IncidentsReport. It never has a nil incidents list.
func NewIncidentsReport(incidents []api.Incident, reportedAt time.Time) IncidentsReport {
	if incidents == nil {
		incidents = []api.Incident{}
	}
	return IncidentsReport{
		Incidents:  incidents,
		ReportedAt: reportedAt.Format(time.RFC3339),
	}
}

// ToJSON writes incidents as a JSON object.
func ToJSON(w io.Writer, incidents []api.Incident, reportedAt time.Time) error {
	return json.NewEncoder(w).Encode(NewIncidentsReport(incidents, reportedAt))
}
