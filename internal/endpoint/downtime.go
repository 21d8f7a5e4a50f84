package endpoint

import (
	"net/http"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// DefaultDowntimeLimit is the number of entries /downtime.json returns by default.
const DefaultDowntimeLimit = 30

// DowntimeJSONEndpoint is the http.HandlerFunc for /downtime.json.
// It returns the downtime log newest first. The "limit" query changes the number of entries.
func DowntimeJSONEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryInt(r, "limit", DefaultDowntimeLimit)
		if !ok {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}

		xs, err := b.Store.RecentDowntimes(r.Context(), limit)
		if err != nil {
			internalError(w, b, "downtime.json", err)
			return
		}
		if xs == nil {
			xs = []api.DowntimeEntry{}
		}

		writeJSON(w, b, "downtime.json", xs)
	}
}
