package endpoint

import (
	"net/http"
	"time"

	"github.com/macrat/sitewatch/internal/logconv"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// DefaultIncidentsLimit is the number of incidents the incidents endpoints return by default.
const DefaultIncidentsLimit = 100

func fetchIncidents(w http.ResponseWriter, r *http.Request, b Backend, scope string) ([]api.Incident, bool) {
	limit, ok := queryInt(r, "limit", DefaultIncidentsLimit)
	if !ok {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return nil, false
	}

	xs, err := b.Store.RecentIncidents(r.Context(), limit)
	if err != nil {
		internalError(w, b, scope, err)
		return nil, false
	}

	return xs, true
}

// IncidentsJSONEndpoint is the http.HandlerFunc for /incidents.json.
// Incidents are ordered newest first.
func IncidentsJSONEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xs, ok := fetchIncidents(w, r, b, "incidents.json")
		if !ok {
			return
		}

		setJSONHeaders(w)
		handleError(b, "incidents.json", logconv.ToJSON(newStreamWriter(w), xs, b.now().UTC()))
	}
}

// IncidentsCSVEndpoint is the http.HandlerFunc for /incidents.csv.
func IncidentsCSVEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xs, ok := fetchIncidents(w, r, b, "incidents.csv")
		if !ok {
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")

		handleError(b, "incidents.csv", logconv.ToCSV(newStreamWriter(w), xs))
	}
}

// IncidentsXlsxEndpoint is the http.HandlerFunc for /incidents.xlsx.
func IncidentsXlsxEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xs, ok := fetchIncidents(w, r, b, "incidents.xlsx")
		if !ok {
			return
		}

		now := b.now()
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="incidents_`+now.Format("20060102")+`.xlsx"`)

		handleError(b, "incidents.xlsx", logconv.ToXlsx(w, xs, now.In(time.UTC)))
	}
}
