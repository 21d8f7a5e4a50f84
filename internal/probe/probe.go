// Package probe checks a single target and reports a binary verdict.
//
// A probe never returns a Go error. Every failure is reported as a down verdict with an error code.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/macrat/sitewatch/internal/siteerr"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	ErrInvalidTarget     = errors.New("invalid target")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrMissingHost       = errors.New("missing target host")
)

// Prober is a checker of a target.
type Prober interface {
	// Target returns the target string exactly as it was given to New.
	Target() string

	// Probe checks the target once. The ctx's deadline is the probe timeout.
	Probe(ctx context.Context) api.ProbeResult
}

// SplitScheme splits scheme of URL.
//
// For example, "http-head" will splited to "http", '-', and "head".
func SplitScheme(scheme string) (subScheme string, separator rune, variant string) {
	for i, x := range scheme {
		if x == '-' || x == '+' {
			return scheme[:i], x, scheme[i+1:]
		}
	}
	return scheme, 0, ""
}

// New creates a Prober for the target.
func New(target string) (Prober, error) {
	p, err := newProber(target)
	if err != nil {
		return nil, siteerr.New(ErrInvalidTarget, err, "%s", target)
	}
	return p, nil
}

func newProber(target string) (Prober, error) {
	if target == "" {
		return nil, api.ErrEmptyTarget
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	scheme, _, _ := SplitScheme(strings.ToLower(u.Scheme))

	switch scheme {
	case "http", "https":
		return NewHTTPProbe(target, u)
	case "tcp", "tcp4", "tcp6":
		return NewTCPProbe(target, u)
	case "ping", "ping4", "ping6":
		return NewPingProbe(target, u)
	case "ftp", "ftps":
		return NewFTPProbe(target, u)
	case "ssh":
		return NewSSHProbe(target, u)
	case "sftp":
		return NewSFTPProbe(target, u)
	default:
		return nil, ErrUnsupportedScheme
	}
}

// begin makes a result that started now.
func begin(target string) api.ProbeResult {
	return api.ProbeResult{
		Target:    target,
		CheckedAt: time.Now(),
	}
}

func succeed(r api.ProbeResult, message string) api.ProbeResult {
	r.Latency = time.Since(r.CheckedAt)
	r.Verdict = api.VerdictUp
	r.Error = api.ErrorNone
	r.Message = message
	return r
}

func failed(ctx context.Context, r api.ProbeResult, err error) api.ProbeResult {
	r.Latency = time.Since(r.CheckedAt)
	r.Verdict = api.VerdictDown
	r.Error = Classify(ctx, err)
	r.Message = describe(err)
	return timeoutOr(ctx, r)
}

// timeoutOr overwrites the result if the deadline has exceeded.
func timeoutOr(ctx context.Context, r api.ProbeResult) api.ProbeResult {
	if ctx.Err() == context.DeadlineExceeded {
		r.Verdict = api.VerdictDown
		r.Error = api.ErrorTimeout
		r.Message = "probe timed out"
	}
	return r
}

// Classify converts an error of probe into an ErrorCode.
func Classify(ctx context.Context, err error) api.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return api.ErrorTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return api.ErrorTimeout
	}

	return api.ErrorConnection
}

func describe(err error) string {
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &dnsErr):
		msg := dnsErr.Error()
		if dnsErr.IsNotFound {
			msg = "lookup " + dnsErr.Name + ": not found"
		}
		return msg
	case errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Addr != nil && opErr.Err != nil:
		return fmt.Sprintf("%s: %s", opErr.Addr, describeSyscall(opErr.Err))
	default:
		return err.Error()
	}
}

// describeSyscall drops the "connect: " prefix of the dial failure.
func describeSyscall(err error) string {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Err != nil {
		return sysErr.Err.Error()
	}
	return err.Error()
}
