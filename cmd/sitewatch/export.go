package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/macrat/sitewatch/internal/logconv"
	"github.com/macrat/sitewatch/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

type ExportCommand struct {
	OutStream io.Writer
	ErrStream io.Writer

	// Now returns the report time. time.Now is used if nil.
	Now func() time.Time
}

var defaultExportCommand = &ExportCommand{
	OutStream: os.Stdout,
	ErrStream: os.Stderr,
}

const ExportHelp = `sitewatch export -- Export incident ledger to other format

Usage: sitewatch export [OPTIONS...]

Options:
  -d, --database  Path to the SQLite database. (default "sitewatch.db")
  -o, --output    Output file. (default stdout)
  -l, --limit     Maximum number of incidents, newest first. 0 means all. (default 0)

  -c, --csv       Export as CSV. (default format)
  -j, --json      Export as JSON.
  -x, --xlsx      Export as XLSX.

  -h, --help      Show this help message and exit.
`

func (c ExportCommand) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c ExportCommand) Run(args []string) int {
	flags := pflag.NewFlagSet("sitewatch export", pflag.ContinueOnError)

	dbPath := flags.StringP("database", "d", "sitewatch.db", "Path to database")
	outputPath := flags.StringP("output", "o", "", "Output file")
	limit := flags.IntP("limit", "l", 0, "Maximum number of incidents")

	toCsv := flags.BoolP("csv", "c", false, "Export as CSV")
	toJson := flags.BoolP("json", "j", false, "Export as JSON")
	toXlsx := flags.BoolP("xlsx", "x", false, "Export as XLSX")

	help := flags.BoolP("help", "h", false, "Show this message and exit")

	if err := flags.Parse(args[2:]); err != nil {
		fmt.Fprintln(c.ErrStream, err)
		fmt.Fprintf(c.ErrStream, "\nPlease see `%s %s -h` for more information.\n", args[0], args[1])
		return 2
	}

	if *help {
		fmt.Fprint(c.OutStream, ExportHelp)
		return 0
	}

	count := 0
	for _, b := range []bool{*toCsv, *toJson, *toXlsx} {
		if b {
			count++
		}
	}
	if count > 1 {
		fmt.Fprintln(c.ErrStream, "error: flags for output format can not use multiple in the same time.")
		return 2
	}

	if *limit < 0 {
		fmt.Fprintf(c.ErrStream, "error: limit must be 0 or greater but got %d\n", *limit)
		return 2
	}

	// Opening a missing path would create an empty database.
	if *dbPath != "-" && *dbPath != ":memory:" {
		if _, err := os.Stat(*dbPath); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(c.ErrStream, "error: database not found: %s\n", *dbPath)
			return 1
		}
	}

	s, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: failed to open database: %s\n", err)
		return 1
	}
	defer s.Close()

	incidents, err := s.RecentIncidents(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: failed to read incidents: %s\n", err)
		return 1
	}

	output := c.OutStream
	if *outputPath != "" && *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(c.ErrStream, "error: failed to open output file: %s\n", err)
			return 1
		}
		defer f.Close()
		output = f
	} else if *toXlsx && isTerminal(output) {
		fmt.Fprintln(c.ErrStream, "error: can not write xlsx format to stdout. please redirect or use -o option.")
		return 2
	}

	switch {
	case *toJson:
		err = logconv.ToJSON(output, incidents, c.now())
	case *toXlsx:
		err = logconv.ToXlsx(output, incidents, c.now())
	default:
		err = logconv.ToCSV(output, incidents)
	}
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: %s\n", err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
