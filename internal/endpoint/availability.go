package endpoint

import (
	"net/http"
	"time"

	"github.com/macrat/sitewatch/internal/availability"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

type windowAvailability struct {
	URL           string           `json:"url"`
	WindowSeconds int              `json:"window_seconds"`
	Availability  api.Availability `json:"availability"`
}

// AvailabilityJSONEndpoint is the http.HandlerFunc for /availability.json.
//
// Without query, it reports 24h, 7d and 30d windows of every site.
// With "target" and "window" (in seconds), it reports a single window of the target.
func AvailabilityJSONEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := b.now().UTC().Truncate(time.Second)
		calc := b.calculator(now)

		target := r.URL.Query().Get("target")
		_, hasWindow := r.URL.Query()["window"]

		if target == "" && !hasWindow {
			all, err := calc.All(r.Context())
			if err != nil {
				internalError(w, b, "availability.json", err)
				return
			}
			writeJSON(w, b, "availability.json", map[string]any{
				"sites":       all,
				"reported_at": now.Format(time.RFC3339),
			})
			return
		}

		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}
		window, ok := queryInt(r, "window", int(24*time.Hour/time.Second))
		if !ok {
			http.Error(w, "window must be a positive integer in seconds", http.StatusBadRequest)
			return
		}
		length, err := availability.WindowOfSeconds(int64(window))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		a, err := calc.ComputeUptime(r.Context(), target, length)
		if err != nil {
			internalError(w, b, "availability.json", err)
			return
		}

		writeJSON(w, b, "availability.json", windowAvailability{
			URL:           target,
			WindowSeconds: window,
			Availability:  a,
		})
	}
}
