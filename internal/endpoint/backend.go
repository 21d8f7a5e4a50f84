package endpoint

import (
	"time"

	"github.com/macrat/sitewatch/internal/availability"
	"github.com/macrat/sitewatch/internal/mcp"
	"github.com/macrat/sitewatch/internal/store"
)

// Logger is the log handler of endpoints.
type Logger interface {
	// ReportInternalError reports sitewatch internal error.
	ReportInternalError(scope, message string)

	// Errors returns a list of internal (critical) errors.
	Errors() (healthy bool, messages []string)
}

// Backend is the data source of endpoints.
type Backend struct {
	// Name is the instance name. It can be empty.
	Name string

	// Schedule is the description of the probe schedule, like "1m0s".
	Schedule string

	Store  store.Store
	Logger Logger

	// Now returns current time. time.Now is used if nil.
	Now func() time.Time
}

func (b Backend) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// calculator returns an availability.Calculator that sees the same now in a request.
func (b Backend) calculator(now time.Time) availability.Calculator {
	return availability.Calculator{
		Store: b.Store,
		Now:   func() time.Time { return now },
	}
}

func (b Backend) mcpBackend() mcp.Backend {
	return mcp.Backend{
		Store:    b.Store,
		Reporter: b.Logger,
		Now:      b.Now,
	}
}
