package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/template"

	"github.com/macrat/sitewatch/internal/alert"
	"github.com/macrat/sitewatch/internal/config"
	"github.com/macrat/sitewatch/internal/logger"
	"github.com/macrat/sitewatch/internal/meta"
	"github.com/macrat/sitewatch/internal/monitor"
	"github.com/macrat/sitewatch/internal/probe"
	"github.com/macrat/sitewatch/internal/store"
	"github.com/macrat/sitewatch/internal/tracker"
	"github.com/spf13/pflag"
)

type SitewatchCommand struct {
	OutStream io.Writer
	ErrStream io.Writer

	ConfigPath   string
	ListenPort   int
	DatabasePath string
	LogPath      string
	InstanceName string
	OneshotMode  bool
	AlertURLs    []string
	Threshold    int
	UserInfo     string
	ShowVersion  bool
	ShowHelp     bool

	Config config.Config
}

var defaultSitewatchCommand = &SitewatchCommand{
	OutStream: os.Stdout,
	ErrStream: os.Stderr,
}

//go:embed help.txt
var helpText string

func (cmd *SitewatchCommand) PrintUsage(detail bool) {
	tmpl := template.Must(template.New("help.txt").Parse(helpText))
	tmpl.Execute(cmd.ErrStream, map[string]interface{}{
		"Version":         meta.Version,
		"HTTPRedirectMax": probe.HTTP_REDIRECT_MAX,
		"Short":           !detail,
	})
}

func (cmd *SitewatchCommand) ParseArgs(args []string) (exitCode int) {
	flags := pflag.NewFlagSet("sitewatch", pflag.ContinueOnError)

	flags.StringVarP(&cmd.ConfigPath, "config", "c", "sitewatch.json", "Path to configuration file")
	flags.IntVarP(&cmd.ListenPort, "port", "p", 9000, "HTTP listen port")
	flags.StringVarP(&cmd.DatabasePath, "database", "d", "sitewatch.db", "Path to database")
	flags.StringVarP(&cmd.LogPath, "log-file", "f", "", "Path to log file")
	flags.StringVarP(&cmd.InstanceName, "name", "n", "", "Instance name")
	flags.BoolVarP(&cmd.OneshotMode, "oneshot", "1", false, "Check status only once and exit")
	flags.StringArrayVarP(&cmd.AlertURLs, "alert", "a", nil, "The alert URLs")
	flags.IntVarP(&cmd.Threshold, "threshold", "t", 0, "Number of consecutive failures to open an incident")
	flags.StringVarP(&cmd.UserInfo, "user", "u", "", "Username and password for HTTP endpoint")
	flags.BoolVarP(&cmd.ShowVersion, "version", "v", false, "Show version")
	flags.BoolVarP(&cmd.ShowHelp, "help", "h", false, "Show help message")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s -h` for more information.\n", args[0])
		return 2
	}

	if cmd.ShowVersion || cmd.ShowHelp {
		return 0
	}

	if cmd.OneshotMode {
		if flags.Changed("port") {
			fmt.Fprintln(cmd.ErrStream, "warning: port option will ignored in the oneshot mode.")
		}
		if flags.Changed("user") {
			fmt.Fprintln(cmd.ErrStream, "warning: user option will ignored in the oneshot mode.")
		}
	}

	if flags.Changed("threshold") && cmd.Threshold < 1 {
		fmt.Fprintf(cmd.ErrStream, "invalid argument: threshold must be 1 or greater but got %d\n", cmd.Threshold)
		return 2
	}

	var c config.Config
	if flags.Changed("config") || flags.NArg() == 0 {
		var err error
		c, err = config.Load(cmd.ConfigPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !flags.Changed("config") {
				cmd.PrintUsage(false)
				return 2
			}
			fmt.Fprintf(cmd.ErrStream, "error: %s: %s\n", cmd.ConfigPath, err)
			return 2
		}
	}

	c.Sites = append(c.Sites, flags.Args()...)
	c.Alerts = append(c.Alerts, cmd.AlertURLs...)
	if cmd.Threshold > 0 {
		c.FailureThreshold = cmd.Threshold
	}

	c.SetDefaults()
	if err := c.Validate(); err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s -h` for more information.\n", args[0])
		return 2
	}
	cmd.Config = c

	return 0
}

func (cmd *SitewatchCommand) PrintVersion() {
	fmt.Fprintf(cmd.OutStream, "sitewatch version %s (%s)\n", meta.Version, meta.Commit)
}

// setup opens everything that both of the server mode and the oneshot mode need.
func (cmd *SitewatchCommand) setup(ctx context.Context, l *logger.Logger) (store.Store, *monitor.Monitor, *alert.Dispatcher, int) {
	dispatcher, err := alert.NewDispatcher(cmd.Config.Alerts, l)
	if err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		return nil, nil, nil, 2
	}

	probers, err := cmd.Config.Probers()
	if err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		return nil, nil, nil, 2
	}

	s, err := store.Open(cmd.DatabasePath)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to open database: %s\n", err)
		return nil, nil, nil, 1
	}

	if err := store.Register(ctx, s, cmd.Config.Sites...); err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to register sites: %s\n", err)
		s.Close()
		return nil, nil, nil, 1
	}

	t := tracker.New(s, cmd.Config.FailureThreshold, l)
	t.OnEvent = append(t.OnEvent, func(e tracker.Event) {
		extra := map[string]interface{}{
			"target":   e.Incident.Target,
			"incident": e.Incident.ID,
			"error":    string(e.Incident.Error),
		}
		if d := e.Incident.DurationSeconds(); d != nil {
			extra["duration_seconds"] = *d
		}
		l.Info("tracker", "incident "+e.Kind.String(), extra)
	}, dispatcher.HandleEvent)

	m := monitor.New(probers, t, l)
	m.Workers = cmd.Config.Workers
	m.Timeout = cmd.Config.Timeout()

	return s, m, dispatcher, 0
}

func (cmd *SitewatchCommand) Run(args []string) (exitCode int) {
	if code := cmd.ParseArgs(args); code != 0 {
		return code
	}

	if cmd.ShowVersion {
		cmd.PrintVersion()
		return 0
	}

	if cmd.ShowHelp {
		cmd.PrintUsage(true)
		return 0
	}

	if cmd.LogPath == "-" {
		cmd.LogPath = ""
	}

	l, err := logger.New(cmd.LogPath, cmd.OutStream)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to open log file: %s\n", err)
		return 1
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, m, dispatcher, code := cmd.setup(ctx, l)
	if code != 0 {
		return code
	}

	if cmd.OneshotMode {
		exitCode = cmd.RunOneshot(ctx, m)
	} else {
		exitCode = cmd.RunServer(ctx, s, m, l)
	}

	dispatcher.Wait()

	if err := s.Close(); err != nil {
		l.ReportInternalError("store", fmt.Sprintf("failed to close database: %s", err))
	}

	healthy, _ := l.Errors()
	if exitCode == 0 && !healthy {
		return 1
	}

	return exitCode
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "oneshot":
			os.Args[1] = "-1"
		case "export":
			os.Exit(defaultExportCommand.Run(os.Args))
		case "mcp":
			os.Exit(defaultMCPCommand.Run(os.Args))
		}
	}

	os.Exit(defaultSitewatchCommand.Run(os.Args))
}
