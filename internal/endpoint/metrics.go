package endpoint

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/macrat/sitewatch/internal/availability"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

func writeHeader(w io.Writer, name, typ, help string) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, typ)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MetricsEndpoint implements Prometheus metrics endpoint.
// This endpoint follows both of Prometheus specification and OpenMetrics specification.
func MetricsEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := b.now().Truncate(time.Second)

		sites, err := b.Store.Sites(ctx)
		if err != nil {
			internalError(w, b, "metrics", err)
			return
		}
		uptimes, err := b.calculator(now).All(ctx)
		if err != nil {
			internalError(w, b, "metrics", err)
			return
		}
		count, err := b.Store.IncidentCount(ctx)
		if err != nil {
			internalError(w, b, "metrics", err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		out := newStreamWriter(w)

		writeHeader(out, "sitewatch_status", "gauge", "The debounced status of the site.")
		for _, s := range sites {
			target := labelEscaper.Replace(s.URL)

			var ts string
			if !s.LastCheckedAt.IsZero() {
				ts = " " + strconv.FormatInt(s.LastCheckedAt.UnixMilli(), 10)
			}

			online, offline := 1, 0
			if s.Status == api.StatusOffline {
				online, offline = 0, 1
			}
			fmt.Fprintf(out, "sitewatch_status{target=\"%s\",status=\"online\"} %d%s\n", target, online, ts)
			fmt.Fprintf(out, "sitewatch_status{target=\"%s\",status=\"offline\"} %d%s\n", target, offline, ts)
		}
		fmt.Fprintln(out)

		writeHeader(out, "sitewatch_consecutive_failures", "gauge", "The number of failed probes since the last succeeded probe.")
		for _, s := range sites {
			fmt.Fprintf(out, "sitewatch_consecutive_failures{target=\"%s\"} %d\n", labelEscaper.Replace(s.URL), s.ConsecutiveFailures)
		}
		fmt.Fprintln(out)

		writeHeader(out, "sitewatch_uptime_percent", "gauge", "The uptime percentage in the trailing window.")
		for _, s := range sites {
			for _, win := range availability.StandardWindows {
				a := uptimes[s.URL][win.Name]
				fmt.Fprintf(out, "sitewatch_uptime_percent{target=\"%s\",window=\"%s\"} %s\n", labelEscaper.Replace(s.URL), win.Name, formatFloat(a.UptimePercent))
			}
		}
		fmt.Fprintln(out)

		writeHeader(out, "sitewatch_downtime_seconds", "gauge", "The downtime in seconds in the trailing window.")
		fmt.Fprintln(out, "# UNIT sitewatch_downtime_seconds seconds")
		for _, s := range sites {
			for _, win := range availability.StandardWindows {
				a := uptimes[s.URL][win.Name]
				fmt.Fprintf(out, "sitewatch_downtime_seconds{target=\"%s\",window=\"%s\"} %d\n", labelEscaper.Replace(s.URL), win.Name, a.DowntimeSeconds)
			}
		}
		fmt.Fprintln(out)

		writeHeader(out, "sitewatch_incident_total", "counter", "The number of incidents ever opened.")
		fmt.Fprintf(out, "sitewatch_incident_total %d\n", count)
		fmt.Fprintln(out)

		healthy := 0
		if ok, _ := b.Logger.Errors(); ok {
			healthy = 1
		}
		writeHeader(out, "sitewatch_healthy", "gauge", "1 if sitewatch has no recent internal error.")
		fmt.Fprintf(out, "sitewatch_healthy %d\n", healthy)
	}
}
