// Package endpoint provides the read-only HTTP API of sitewatch.
package endpoint

import (
	"net/http"
	"strconv"

	"github.com/NYTimes/gziphandler"
	"github.com/goccy/go-json"
)

// New creates the http.Handler of all endpoints.
func New(b Backend) http.Handler {
	m := http.NewServeMux()

	m.Handle("/status", http.RedirectHandler("/status.txt", http.StatusMovedPermanently))
	m.HandleFunc("/status.txt", StatusTextEndpoint(b))
	m.HandleFunc("/status.json", StatusJSONEndpoint(b))

	m.HandleFunc("/downtime.json", DowntimeJSONEndpoint(b))
	m.HandleFunc("/availability.json", AvailabilityJSONEndpoint(b))
	m.HandleFunc("/events.json", EventsJSONEndpoint(b))

	m.Handle("/incidents", http.RedirectHandler("/incidents.json", http.StatusMovedPermanently))
	m.HandleFunc("/incidents.json", IncidentsJSONEndpoint(b))
	m.HandleFunc("/incidents.csv", IncidentsCSVEndpoint(b))
	m.HandleFunc("/incidents.xlsx", IncidentsXlsxEndpoint(b))

	m.HandleFunc("/metrics", MetricsEndpoint(b))
	m.HandleFunc("/healthz", HealthzEndpoint(b))

	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/status.txt", http.StatusFound)
		} else {
			http.NotFound(w, r)
		}
	})

	h := gziphandler.GzipHandler(m)

	root := http.NewServeMux()
	root.Handle("/mcp", MCPHandler(b))
	root.Handle("/", h)

	return root
}

func handleError(b Backend, scope string, err error) {
	if err != nil {
		b.Logger.ReportInternalError("endpoint:"+scope, err.Error())
	}
}

// internalError reports err and responds 500.
func internalError(w http.ResponseWriter, b Backend, scope string, err error) {
	handleError(b, scope, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func setJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")
}

func writeJSON(w http.ResponseWriter, b Backend, scope string, v any) {
	setJSONHeaders(w)
	handleError(b, scope, json.NewEncoder(newStreamWriter(w)).Encode(v))
}

// queryInt parses an optional positive integer query parameter.
// The ok is false if the value is not a positive integer.
func queryInt(r *http.Request, key string, fallback int) (n int, ok bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
