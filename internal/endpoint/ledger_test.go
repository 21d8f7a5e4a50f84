package endpoint_test

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/macrat/sitewatch/internal/endpoint"
	"github.com/macrat/sitewatch/internal/testutil"
	"github.com/xuri/excelize/v2"
)

func TestDowntimeJSONEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	tests := []struct {
		Query  string
		Expect []map[string]any
	}{
		{
			"",
			[]map[string]any{
				{"url": testutil.SiteB, "timestamp": "2024-03-01T11:30:00Z", "error": "timeout"},
				{"url": testutil.SiteA, "timestamp": "2024-03-01T10:00:00Z", "error": "http_5xx:503"},
			},
		},
		{
			"?limit=1",
			[]map[string]any{
				{"url": testutil.SiteB, "timestamp": "2024-03-01T11:30:00Z", "error": "timeout"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Query, func(t *testing.T) {
			var xs []map[string]any
			getJSON(t, srv.URL+"/downtime.json"+tt.Query, &xs)

			if diff := cmp.Diff(tt.Expect, xs); diff != "" {
				t.Errorf("unexpected response:\n%s", diff)
			}
		})
	}

	for _, q := range []string{"?limit=0", "?limit=-1", "?limit=abc"} {
		resp, _ := get(t, srv.URL+"/downtime.json"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400 but got %s", q, resp.Status)
		}
	}
}

func TestAvailabilityJSONEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	t.Run("all", func(t *testing.T) {
		var report struct {
			Sites      map[string]map[string]map[string]float64 `json:"sites"`
			ReportedAt string                                   `json:"reported_at"`
		}
		getJSON(t, srv.URL+"/availability.json", &report)

		expect := map[string]map[string]map[string]float64{
			testutil.SiteA: {
				"24h": {"uptime_percent": 95.833, "downtime_seconds": 3600, "incidents": 1},
				"7d":  {"uptime_percent": 99.405, "downtime_seconds": 3600, "incidents": 1},
				"30d": {"uptime_percent": 99.861, "downtime_seconds": 3600, "incidents": 1},
			},
			testutil.SiteB: {
				"24h": {"uptime_percent": 97.917, "downtime_seconds": 1800, "incidents": 1},
				"7d":  {"uptime_percent": 99.702, "downtime_seconds": 1800, "incidents": 1},
				"30d": {"uptime_percent": 99.931, "downtime_seconds": 1800, "incidents": 1},
			},
			testutil.SiteC: {
				"24h": {"uptime_percent": 100, "downtime_seconds": 0, "incidents": 0},
				"7d":  {"uptime_percent": 100, "downtime_seconds": 0, "incidents": 0},
				"30d": {"uptime_percent": 100, "downtime_seconds": 0, "incidents": 0},
			},
		}
		if diff := cmp.Diff(expect, report.Sites); diff != "" {
			t.Errorf("unexpected response:\n%s", diff)
		}
		if report.ReportedAt != "2024-03-01T12:00:00Z" {
			t.Errorf("unexpected reported_at: %s", report.ReportedAt)
		}
	})

	t.Run("window", func(t *testing.T) {
		var x map[string]any
		getJSON(t, srv.URL+"/availability.json?target=https://b.example.com&window=3600", &x)

		expect := map[string]any{
			"url":            testutil.SiteB,
			"window_seconds": 3600.0,
			"availability": map[string]any{
				"uptime_percent":   50.0,
				"downtime_seconds": 1800.0,
				"incidents":        1.0,
			},
		}
		if diff := cmp.Diff(expect, x); diff != "" {
			t.Errorf("unexpected response:\n%s", diff)
		}
	})

	t.Run("unknown-target", func(t *testing.T) {
		var x map[string]any
		getJSON(t, srv.URL+"/availability.json?target=https://unknown.example.com", &x)

		if diff := cmp.Diff(map[string]any{"uptime_percent": 100.0, "downtime_seconds": 0.0, "incidents": 0.0}, x["availability"]); diff != "" {
			t.Errorf("unexpected response:\n%s", diff)
		}
	})

	for _, q := range []string{"?window=60", "?target=x&window=0", "?target=x&window=abc"} {
		resp, _ := get(t, srv.URL+"/availability.json"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400 but got %s", q, resp.Status)
		}
	}
}

func TestAvailabilityJSONEndpoint_longWindow(t *testing.T) {
	b, l := testutil.NewBackend(t)
	h := endpoint.New(b)

	tests := []struct {
		Window string
		Code   int
	}{
		{"9223372036", http.StatusOK},
		{"9223372037", http.StatusBadRequest},
		{"10000000000", http.StatusBadRequest},
		{"18446744074", http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := serve(h, newRequest(t, "/availability.json?target="+testutil.SiteA+"&window="+tt.Window))
		if w.Code != tt.Code {
			t.Errorf("window=%s: expected %d but got %d: %s", tt.Window, tt.Code, w.Code, w.Body.String())
		}
		if tt.Code == http.StatusOK && !strings.Contains(w.Body.String(), `"downtime_seconds":3600`) {
			t.Errorf("window=%s: the incident should be counted: %s", tt.Window, w.Body.String())
		}
	}

	if healthy, messages := l.Errors(); !healthy {
		t.Errorf("a bad query should not make sitewatch unhealthy: %v", messages)
	}
}

func TestEventsJSONEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	var xs []map[string]any
	getJSON(t, srv.URL+"/events.json?target=https://a.example.com", &xs)

	expect := []map[string]any{
		{"url": testutil.SiteA, "status": "offline", "timestamp": "2024-03-01T10:00:00Z"},
		{"url": testutil.SiteA, "status": "online", "timestamp": "2024-03-01T11:00:00Z"},
	}
	if diff := cmp.Diff(expect, xs); diff != "" {
		t.Errorf("unexpected response:\n%s", diff)
	}

	getJSON(t, srv.URL+"/events.json?target=https://a.example.com&since=2024-03-01T10:30:00Z", &xs)
	if len(xs) != 1 {
		t.Errorf("expected 1 event but got %v", xs)
	}

	getJSON(t, srv.URL+"/events.json?target=tcp://c.example.com:22", &xs)
	if len(xs) != 0 {
		t.Errorf("expected no event but got %v", xs)
	}

	for _, q := range []string{"", "?target=x&since=yesterday"} {
		resp, _ := get(t, srv.URL+"/events.json"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: expected 400 but got %s", q, resp.Status)
		}
	}
}

func TestIncidentsJSONEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	var report struct {
		Incidents []map[string]any `json:"incidents"`
	}
	getJSON(t, srv.URL+"/incidents.json", &report)

	if len(report.Incidents) != 2 {
		t.Fatalf("expected 2 incidents but got %v", report.Incidents)
	}

	for _, x := range report.Incidents {
		delete(x, "id")
	}
	expect := []map[string]any{
		{"url": testutil.SiteB, "start": "2024-03-01T11:30:00Z", "end": nil, "duration_seconds": nil, "error": "timeout"},
		{"url": testutil.SiteA, "start": "2024-03-01T10:00:00Z", "end": "2024-03-01T11:00:00Z", "duration_seconds": 3600.0, "error": "http_5xx:503"},
	}
	if diff := cmp.Diff(expect, report.Incidents); diff != "" {
		t.Errorf("unexpected response:\n%s", diff)
	}

	getJSON(t, srv.URL+"/incidents.json?limit=1", &report)
	if len(report.Incidents) != 1 {
		t.Errorf("expected 1 incident but got %v", report.Incidents)
	}
}

func TestIncidentsCSVEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	resp, body := get(t, srv.URL+"/incidents.csv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %s", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows but got %v", rows)
	}

	for i := range rows {
		rows[i] = rows[i][1:]
	}
	expect := [][]string{
		{"url", "error", "starts_at", "ends_at", "duration_seconds"},
		{testutil.SiteB, "timeout", "2024-03-01T11:30:00Z", "", ""},
		{testutil.SiteA, "http_5xx:503", "2024-03-01T10:00:00Z", "2024-03-01T11:00:00Z", "3600"},
	}
	if diff := cmp.Diff(expect, rows); diff != "" {
		t.Errorf("unexpected CSV:\n%s", diff)
	}
}

func TestIncidentsXlsxEndpoint(t *testing.T) {
	srv := testutil.StartTestServer(t)

	resp, body := get(t, srv.URL+"/incidents.xlsx")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="incidents_20240301.xlsx"` {
		t.Errorf("unexpected content disposition: %s", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("failed to open xlsx: %s", err)
	}
	defer f.Close()

	rows, err := f.GetRows("incidents")
	if err != nil {
		t.Fatalf("failed to read rows: %s", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected 3 rows but got %d", len(rows))
	}
}
