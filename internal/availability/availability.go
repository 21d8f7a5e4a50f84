// Package availability answers uptime queries from the incident ledger.
package availability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/macrat/sitewatch/internal/store"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	// ErrInvalidWindow means the window is not positive.
	ErrInvalidWindow = errors.New("window must be greater than 0")

	// ErrWindowTooLong means the window can not be represented as time.Duration.
	ErrWindowTooLong = errors.New("window is too long")
)

// MaxWindowSeconds is the longest window that WindowOfSeconds accepts.
const MaxWindowSeconds = math.MaxInt64 / int64(time.Second)

// WindowOfSeconds converts a window length given by a client into time.Duration.
func WindowOfSeconds(n int64) (time.Duration, error) {
	switch {
	case n < 1:
		return 0, fmt.Errorf("%w: %d seconds", ErrInvalidWindow, n)
	case n > MaxWindowSeconds:
		return 0, fmt.Errorf("%w: %d seconds is longer than %d seconds", ErrWindowTooLong, n, MaxWindowSeconds)
	}
	return time.Duration(n) * time.Second, nil
}

// Window is a named trailing duration.
type Window struct {
	Name   string
	Length time.Duration
}

// StandardWindows are the windows that the status page reports.
var StandardWindows = []Window{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
}

// Calculator computes availability of sites.
// It is safe to use while the tracker is writing.
type Calculator struct {
	Store store.Store

	// Now returns current time. time.Now is used if nil.
	Now func() time.Time
}

func (c Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ComputeUptime calculates availability of the target over the window that ends now.
func (c Calculator) ComputeUptime(ctx context.Context, target string, window time.Duration) (api.Availability, error) {
	return c.computeAt(ctx, target, window, c.now())
}

func (c Calculator) computeAt(ctx context.Context, target string, window time.Duration, now time.Time) (api.Availability, error) {
	if window <= 0 {
		return api.Availability{}, fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}

	since := now.Add(-window)
	xs, err := c.Store.IncidentsOverlapping(ctx, target, since, now)
	if err != nil {
		return api.Availability{}, fmt.Errorf("failed to get incidents of %s: %w", target, err)
	}

	return api.ComputeAvailability(xs, since, now), nil
}

// Standard calculates availability of the target for each of StandardWindows.
// All windows end at the same time.
func (c Calculator) Standard(ctx context.Context, target string) (map[string]api.Availability, error) {
	now := c.now()

	result := make(map[string]api.Availability, len(StandardWindows))
	for _, w := range StandardWindows {
		a, err := c.computeAt(ctx, target, w.Length, now)
		if err != nil {
			return nil, err
		}
		result[w.Name] = a
	}
	return result, nil
}

// All calculates Standard of every stored site, keyed by URL.
func (c Calculator) All(ctx context.Context) (map[string]map[string]api.Availability, error) {
	sites, err := c.Store.Sites(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]api.Availability, len(sites))
	for _, s := range sites {
		if result[s.URL], err = c.Standard(ctx, s.URL); err != nil {
			return nil, err
		}
	}
	return result, nil
}
