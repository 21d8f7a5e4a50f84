package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	ErrTCPPortMissing = errors.New("TCP target's port number is required")
)

// TCPProbe checks if the port accepts a connection.
type TCPProbe struct {
	target  string
	network string
	address string
}

func NewTCPProbe(target string, u *url.URL) (TCPProbe, error) {
	scheme, separator, _ := SplitScheme(strings.ToLower(u.Scheme))
	if separator != 0 {
		return TCPProbe{}, ErrUnsupportedScheme
	}

	host := u.Host
	if host == "" {
		host = u.Opaque
	}
	h := &url.URL{Host: host}

	if h.Hostname() == "" {
		return TCPProbe{}, ErrMissingHost
	}
	if h.Port() == "" {
		return TCPProbe{}, ErrTCPPortMissing
	}

	return TCPProbe{
		target:  target,
		network: scheme,
		address: strings.ToLower(host),
	}, nil
}

func (p TCPProbe) Target() string {
	return p.target
}

func (p TCPProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, p.network, p.address)
	if err != nil {
		return failed(ctx, r, err)
	}
	defer conn.Close()

	return succeed(r, "source="+conn.LocalAddr().String()+" target="+conn.RemoteAddr().String())
}
