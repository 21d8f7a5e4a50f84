package main

import (
	"context"

	"github.com/macrat/sitewatch/internal/monitor"
)

// RunOneshot probes all sites once.
// It returns 1 if any site is offline or any result could not be recorded.
func (cmd *SitewatchCommand) RunOneshot(ctx context.Context, m *monitor.Monitor) (exitCode int) {
	report := m.RunCycle(ctx)

	if len(report.Offline()) > 0 || report.Failed() > 0 {
		return 1
	}
	return 0
}
