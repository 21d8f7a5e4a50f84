package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/macrat/sitewatch/internal/logger"
	mcputil "github.com/macrat/sitewatch/internal/mcp"
	"github.com/macrat/sitewatch/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

// MCPCommand serves the MCP tools over stdio.
type MCPCommand struct {
	OutStream io.Writer
	ErrStream io.Writer
}

var defaultMCPCommand = &MCPCommand{
	OutStream: os.Stdout,
	ErrStream: os.Stderr,
}

const MCPHelp = `sitewatch mcp -- Start local MCP server

Usage: sitewatch mcp [OPTIONS...]

Options:
  -d, --database  Path to the SQLite database. (default "sitewatch.db")
  -f, --log-file  Path to log file. Log only to stderr if omitted.
  -n, --name      Instance name.
  -h, --help      Show this help message and exit.
`

func (cmd *MCPCommand) Run(args []string) int {
	flags := pflag.NewFlagSet("sitewatch mcp", pflag.ContinueOnError)

	dbPath := flags.StringP("database", "d", "sitewatch.db", "Path to database")
	logPath := flags.StringP("log-file", "f", "", "Path to log file")
	instanceName := flags.StringP("name", "n", "", "Instance name")
	help := flags.BoolP("help", "h", false, "Show this message and exit")

	if err := flags.Parse(args[2:]); err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s mcp -h` for more information.\n", args[0])
		return 2
	}

	if *help {
		io.WriteString(cmd.OutStream, MCPHelp)
		return 0
	}

	if *logPath == "-" {
		*logPath = ""
	}

	// stdout is the transport, so logs go to stderr.
	l, err := logger.New(*logPath, cmd.ErrStream)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to open log file: %s\n", err)
		return 1
	}
	defer l.Close()

	s, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to open database: %s\n", err)
		return 1
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := mcputil.NewLocalServer(*instanceName, mcputil.Backend{
		Store:    s,
		Reporter: l,
	})

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		fmt.Fprintf(cmd.ErrStream, "error: MCP server error: %s\n", err)
		return 1
	}

	return 0
}
