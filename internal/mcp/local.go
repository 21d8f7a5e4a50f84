package mcp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/macrat/sitewatch/internal/probe"
	api "github.com/macrat/sitewatch/lib-sitewatch"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CheckTimeout is the deadline of each probe by check_site tool.
const CheckTimeout = 10 * time.Second

// CheckSiteInput is the input for check_site tool.
type CheckSiteInput struct {
	Targets []string `json:"targets" jsonschema:"URLs to check. Each URL will be probed once."`
}

// CheckSiteOutput is the output of check_site tool.
type CheckSiteOutput struct {
	Results []map[string]any `json:"results" jsonschema:"Results of probing each target, in the same order as the input."`
}

func checkOne(ctx context.Context, target string) api.ProbeResult {
	p, err := probe.New(target)
	if err != nil {
		return api.ProbeResult{
			Target:    target,
			CheckedAt: time.Now(),
			Verdict:   api.VerdictDown,
			Error:     api.ErrorConnection,
			Message:   err.Error(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	return p.Probe(ctx)
}

// CheckSite probes the targets once, without touching the ledger.
func CheckSite(ctx context.Context, input CheckSiteInput) (CheckSiteOutput, error) {
	if len(input.Targets) == 0 {
		return CheckSiteOutput{}, errors.New("at least one target URL is required")
	}

	results := make([]map[string]any, len(input.Targets))

	var wg sync.WaitGroup
	for i, t := range input.Targets {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			results[i] = ProbeResultToMap(checkOne(ctx, t))
		}(i, t)
	}
	wg.Wait()

	return CheckSiteOutput{Results: results}, nil
}

// AddLocalTools adds the tools that make network access from this host.
// These tools are: check_site.
func AddLocalTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_site",
		Title:       "Check site",
		Description: "Probe sites once and report the verdict. The result is not recorded to the incident ledger.",
		Annotations: &mcp.ToolAnnotations{
			IdempotentHint: true,
			ReadOnlyHint:   true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input CheckSiteInput) (*mcp.CallToolResult, CheckSiteOutput, error) {
		output, err := CheckSite(ctx, input)
		return nil, output, err
	})
}
