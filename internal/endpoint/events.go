package endpoint

import (
	"net/http"
	"time"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// EventsJSONEndpoint is the http.HandlerFunc for /events.json.
// It returns the status timeline of the "target" since the "since" (RFC3339, default 30 days ago).
func EventsJSONEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}

		since := b.now().Add(-30 * 24 * time.Hour)
		if raw := r.URL.Query().Get("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "since must be in RFC3339 format", http.StatusBadRequest)
				return
			}
			since = t
		}

		xs, err := b.Store.StatusEvents(r.Context(), target, since)
		if err != nil {
			internalError(w, b, "events.json", err)
			return
		}
		if xs == nil {
			xs = []api.StatusEvent{}
		}

		writeJSON(w, b, "events.json", xs)
	}
}
