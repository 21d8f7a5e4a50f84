package endpoint

import (
	"net/http"

	"github.com/macrat/sitewatch/internal/mcp"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer creates an MCP server with the read-only tools.
func MCPServer(b Backend) *mcpsdk.Server {
	return mcp.NewRemoteServer(b.Name, b.mcpBackend())
}

// MCPHandler creates an HTTP handler for MCP requests.
func MCPHandler(b Backend) http.Handler {
	server := MCPServer(b)

	return mcpsdk.NewStreamableHTTPHandler(func(req *http.Request) *mcpsdk.Server {
		return server
	}, &mcpsdk.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})
}
