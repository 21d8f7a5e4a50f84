// Package mcp provides the Model Context Protocol tools of sitewatch.
package mcp

import (
	"github.com/macrat/sitewatch/internal/meta"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func newServer(instanceName string, b Backend, includeLocalTools bool) *mcp.Server {
	title := "sitewatch"
	instructions := "sitewatch is an uptime monitor. It records incidents of each site and calculates availability from them. Use jq queries to extract necessary information instead of fetching all data at once."

	if includeLocalTools {
		title = "sitewatch local MCP"
		instructions += " This server can also probe sites on demand."
	}

	if instanceName != "" {
		title = title + " (" + instanceName + ")"
		instructions = instructions + " This instance's name is \"" + instanceName + "\"."
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sitewatch",
		Version: meta.Version,
		Title:   title,
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	AddReadOnlyTools(server, b)
	if includeLocalTools {
		AddLocalTools(server)
	}

	return server
}

// NewRemoteServer creates an MCP server for the HTTP endpoint, with read-only tools only.
func NewRemoteServer(instanceName string, b Backend) *mcp.Server {
	return newServer(instanceName, b, false)
}

// NewLocalServer creates an MCP server for the stdio transport, includes check_site tool.
func NewLocalServer(instanceName string, b Backend) *mcp.Server {
	return newServer(instanceName, b, true)
}
