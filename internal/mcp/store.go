package mcp

import (
	"errors"
	"time"

	"github.com/macrat/sitewatch/internal/store"
)

// ErrorReporter receives internal errors of tools.
type ErrorReporter interface {
	ReportInternalError(scope, message string)
}

// Backend is the data source of MCP tools.
type Backend struct {
	Store store.Store

	// Reporter receives store errors. It can be nil.
	Reporter ErrorReporter

	// Now returns current time. time.Now is used if nil.
	Now func() time.Time
}

func (b Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// internalError reports err and returns an error that is safe to show to clients.
func (b Backend) internalError(tool string, err error) error {
	if b.Reporter != nil {
		b.Reporter.ReportInternalError("mcp/"+tool, err.Error())
	}
	return errors.New("internal server error")
}
