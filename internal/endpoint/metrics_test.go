package endpoint_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/macrat/sitewatch/internal/endpoint"
	"github.com/macrat/sitewatch/internal/testutil"
)

func TestMetricsEndpoint(t *testing.T) {
	b, l := testutil.NewBackend(t)
	h := endpoint.MetricsEndpoint(b)

	w := serve(h, newRequest(t, "/metrics"))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	body := w.Body.String()

	expects := []string{
		"# TYPE sitewatch_status gauge",
		`sitewatch_status{target="https://a.example.com",status="online"} 1 1709294340000`,
		`sitewatch_status{target="https://b.example.com",status="offline"} 1 1709294340000`,
		`sitewatch_status{target="tcp://c.example.com:22",status="online"} 1` + "\n",
		`sitewatch_consecutive_failures{target="https://b.example.com"} 3`,
		`sitewatch_uptime_percent{target="https://a.example.com",window="24h"} 95.833`,
		`sitewatch_uptime_percent{target="tcp://c.example.com:22",window="30d"} 100`,
		`sitewatch_downtime_seconds{target="https://b.example.com",window="7d"} 1800`,
		"# TYPE sitewatch_incident_total counter\nsitewatch_incident_total 2\n",
		"sitewatch_healthy 1\n",
	}
	for _, e := range expects {
		if !strings.Contains(body, e) {
			t.Errorf("metrics does not contain %q:\n%s", e, body)
		}
	}

	l.ReportInternalError("test", "something wrong")

	w = serve(h, newRequest(t, "/metrics"))
	if !strings.Contains(w.Body.String(), "sitewatch_healthy 0\n") {
		t.Errorf("expected unhealthy:\n%s", w.Body.String())
	}
}
