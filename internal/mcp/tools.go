package mcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/macrat/sitewatch/internal/availability"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusInput is the input for query_status tool.
type StatusInput struct {
	JQ string `json:"jq,omitempty" jsonschema:"A jq query string to filter and/or aggregate status. Query receives an array. Each object is like '{\"url\": \"{url}\", \"status\": \"online|offline\", \"consecutive_failures\": 0, \"last_error\": \"{error code or null}\", \"last_downtime\": \"{RFC 3339 or null}\", \"last_checked\": \"{RFC 3339 or null}\"}'. You can use 'parse_url' filter to parse URLs. For example, 'map(select(.status == \"offline\")) | map(.url)' to get offline sites."`
}

// FetchStatusByJQ fetches the current state of every site and applies jq query.
func FetchStatusByJQ(ctx context.Context, b Backend, input StatusInput) (Output, error) {
	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	sites, err := b.Store.Sites(ctx)
	if err != nil {
		return Output{}, b.internalError("query_status", err)
	}

	xs := make([]any, len(sites))
	for i, s := range sites {
		xs[i] = SiteToMap(s)
	}

	return jq.Run(ctx, xs)
}

// IncidentsInput is the input for query_incidents tool.
type IncidentsInput struct {
	IncludeOngoing  *bool  `json:"include_ongoing,omitempty" jsonschema:"Whether to include ongoing incidents in the result. If omitted, ongoing incidents are included."`
	IncludeResolved *bool  `json:"include_resolved,omitempty" jsonschema:"Whether to include resolved incidents in the result. If omitted, resolved incidents are included."`
	Target          string `json:"target,omitempty" jsonschema:"URL of the site to fetch incidents. If omitted, incidents of all sites are returned."`
	JQ              string `json:"jq,omitempty" jsonschema:"A jq query string to filter and/or aggregate incidents. Query receives an array sorted by the start time. Each object is like '{\"id\": \"...\", \"url\": \"{url}\", \"error\": \"timeout|connection_error|http_5xx:{code}\", \"starts_at\": \"{RFC 3339}\", \"ends_at\": \"{RFC 3339 or null}\", \"duration_seconds\": \"{integer or null}\"}'. For example, 'group_by(.url) | map({url: .[0].url, count: length})' to count incidents per site."`
}

func isEnabled(b *bool) bool {
	return b == nil || *b
}

// FetchIncidentsByJQ fetches incidents from the ledger and applies jq query.
func FetchIncidentsByJQ(ctx context.Context, b Backend, input IncidentsInput) (Output, error) {
	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	incidents, err := b.Store.RecentIncidents(ctx, 0)
	if err != nil {
		return Output{}, b.internalError("query_incidents", err)
	}

	xs := make([]any, 0, len(incidents))
	for i := len(incidents) - 1; i >= 0; i-- {
		inc := incidents[i]
		if input.Target != "" && inc.Target != input.Target {
			continue
		}
		if inc.IsOpen() && !isEnabled(input.IncludeOngoing) {
			continue
		}
		if !inc.IsOpen() && !isEnabled(input.IncludeResolved) {
			continue
		}
		xs = append(xs, IncidentToMap(inc))
	}

	return jq.Run(ctx, xs)
}

// AvailabilityInput is the input for query_availability tool.
type AvailabilityInput struct {
	Target        string `json:"target,omitempty" jsonschema:"URL of the site. If omitted, all sites are reported."`
	WindowSeconds int    `json:"window_seconds,omitempty" jsonschema:"Length of the trailing window in seconds. If omitted, the 24h, 7d, and 30d windows are reported."`
	JQ            string `json:"jq,omitempty" jsonschema:"A jq query string to filter and/or aggregate availability. Query receives an array. Each object is like '{\"url\": \"{url}\", \"windows\": {\"24h\": {\"uptime_percent\": 99.9, \"downtime_seconds\": 86, \"incidents\": 1}, ...}}'. For example, 'map(select(.windows[\"24h\"].uptime_percent < 99.9)) | map(.url)' to find sites below 99.9% in the last 24 hours."`
}

// FetchAvailabilityByJQ calculates availability of sites and applies jq query.
func FetchAvailabilityByJQ(ctx context.Context, b Backend, input AvailabilityInput) (Output, error) {
	if input.WindowSeconds < 0 {
		return Output{}, fmt.Errorf("window_seconds must be greater than 0 but got %d", input.WindowSeconds)
	}
	if int64(input.WindowSeconds) > availability.MaxWindowSeconds {
		return Output{}, fmt.Errorf("window_seconds must be %d or less but got %d", availability.MaxWindowSeconds, input.WindowSeconds)
	}

	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	var targets []string
	if input.Target != "" {
		targets = []string{input.Target}
	} else {
		sites, err := b.Store.Sites(ctx)
		if err != nil {
			return Output{}, b.internalError("query_availability", err)
		}
		for _, s := range sites {
			targets = append(targets, s.URL)
		}
	}

	windows := availability.StandardWindows
	if input.WindowSeconds > 0 {
		windows = []availability.Window{{
			Name:   strconv.Itoa(input.WindowSeconds) + "s",
			Length: time.Duration(input.WindowSeconds) * time.Second,
		}}
	}

	now := b.now()
	calc := availability.Calculator{
		Store: b.Store,
		Now:   func() time.Time { return now },
	}

	xs := make([]any, 0, len(targets))
	for _, t := range targets {
		ws := make(map[string]any, len(windows))
		for _, w := range windows {
			a, err := calc.ComputeUptime(ctx, t, w.Length)
			if err != nil {
				return Output{}, b.internalError("query_availability", err)
			}
			ws[w.Name] = AvailabilityToMap(a)
		}
		xs = append(xs, map[string]any{
			"url":     t,
			"windows": ws,
		})
	}

	return jq.Run(ctx, xs)
}

// EventsInput is the input for query_events tool.
type EventsInput struct {
	Target string `json:"target" jsonschema:"URL of the site."`
	Since  string `json:"since,omitempty" jsonschema:"The start time in RFC3339 format. If omitted, events of the last 30 days are returned."`
	JQ     string `json:"jq,omitempty" jsonschema:"A jq query string to filter events. Query receives an array in the order of time. Each object is like '{\"url\": \"{url}\", \"status\": \"online|offline\", \"timestamp\": \"{RFC 3339}\"}'."`
}

// FetchEventsByJQ fetches the status timeline of a site and applies jq query.
func FetchEventsByJQ(ctx context.Context, b Backend, input EventsInput) (Output, error) {
	if input.Target == "" {
		return Output{}, fmt.Errorf("target parameter is required")
	}

	since := b.now().Add(-30 * 24 * time.Hour)
	if input.Since != "" {
		t, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return Output{}, fmt.Errorf("since time must be in RFC3339 format but got %q", input.Since)
		}
		since = t
	}

	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	events, err := b.Store.StatusEvents(ctx, input.Target, since)
	if err != nil {
		return Output{}, b.internalError("query_events", err)
	}

	xs := make([]any, len(events))
	for i, e := range events {
		xs[i] = StatusEventToMap(e)
	}

	return jq.Run(ctx, xs)
}

// AddReadOnlyTools adds the query tools to the MCP server.
// These tools are: query_status, query_incidents, query_availability, query_events.
func AddReadOnlyTools(server *mcp.Server, b Backend) {
	annotations := &mcp.ToolAnnotations{
		IdempotentHint: true,
		ReadOnlyHint:   true,
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_status",
		Title:       "Query status",
		Description: "Fetch the current status of each monitored site.",
		Annotations: annotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchStatusByJQ(ctx, b, input)
		return nil, output, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_incidents",
		Title:       "Query incidents",
		Description: "Fetch ongoing and resolved incidents from the incident ledger.",
		Annotations: annotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input IncidentsInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchIncidentsByJQ(ctx, b, input)
		return nil, output, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_availability",
		Title:       "Query availability",
		Description: "Calculate uptime percentage and downtime of sites over trailing windows.",
		Annotations: annotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input AvailabilityInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchAvailabilityByJQ(ctx, b, input)
		return nil, output, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_events",
		Title:       "Query status events",
		Description: "Fetch the online/offline transitions of a site.",
		Annotations: annotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input EventsInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchEventsByJQ(ctx, b, input)
		return nil, output, err
	})
}
