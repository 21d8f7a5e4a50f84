package endpoint

import (
	"net/http"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var templateFuncs = template.FuncMap{
	"time2str": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
	"reltime": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return strings.TrimSpace(humanize.RelTime(t, now, "ago", "from now"))
	},
	"or_dash": func(c api.ErrorCode) string {
		if c == api.ErrorNone {
			return "-"
		}
		return string(c)
	},
}

const statusTextTemplate = `{{ if .Name }}{{ .Name }} {{ end }}status at {{ time2str .ReportedAt }}
{{ if .Schedule }}checked every {{ .Schedule }}
{{ end }}
URL	STATUS	FAILURES	LAST CHECKED	LAST DOWNTIME	LAST ERROR
{{ range .Sites }}{{ .URL }}	{{ .Status }}	{{ .ConsecutiveFailures }}	{{ reltime .LastCheckedAt $.ReportedAt }}	{{ reltime .LastDowntimeAt $.ReportedAt }}	{{ or_dash .LastError }}
{{ end }}`

type statusReport struct {
	Name       string     `json:"-"`
	Schedule   string     `json:"schedule,omitempty"`
	Sites      []api.Site `json:"sites"`
	ReportedAt time.Time  `json:"reported_at"`
}

func newStatusReport(r *http.Request, b Backend) (statusReport, error) {
	sites, err := b.Store.Sites(r.Context())
	if err != nil {
		return statusReport{}, err
	}
	if sites == nil {
		sites = []api.Site{}
	}

	return statusReport{
		Name:       b.Name,
		Schedule:   b.Schedule,
		Sites:      sites,
		ReportedAt: b.now().UTC().Truncate(time.Second),
	}, nil
}

// StatusTextEndpoint is the http.HandlerFunc for /status.txt.
func StatusTextEndpoint(b Backend) http.HandlerFunc {
	tmpl := template.Must(template.New("status.txt").Funcs(templateFuncs).Parse(statusTextTemplate))

	return func(w http.ResponseWriter, r *http.Request) {
		report, err := newStatusReport(r, b)
		if err != nil {
			internalError(w, b, "status.txt", err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")

		tw := tabwriter.NewWriter(newStreamWriter(w), 0, 8, 2, ' ', 0)
		handleError(b, "status.txt", tmpl.Execute(tw, report))
		handleError(b, "status.txt", tw.Flush())
	}
}

// StatusJSONEndpoint is the http.HandlerFunc for /status.json.
func StatusJSONEndpoint(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := newStatusReport(r, b)
		if err != nil {
			internalError(w, b, "status.json", err)
			return
		}

		writeJSON(w, b, "status.json", report)
	}
}
