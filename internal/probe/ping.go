package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/macrat/go-parallel-pinger"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	ErrFailedToPreparePing = errors.New("failed to setup ping service")
)

// pingSettings reads SITEWATCH_PING_PACKETS, SITEWATCH_PING_PERIOD, and SITEWATCH_PING_PRIVILEGED.
func pingSettings() (count int, interval time.Duration, privileged *bool) {
	count, err := strconv.Atoi(os.Getenv("SITEWATCH_PING_PACKETS"))
	if err != nil || count <= 0 {
		count = 3
	} else if count >= 100 {
		count = 100
	}

	d, err := time.ParseDuration(os.Getenv("SITEWATCH_PING_PERIOD"))
	if err != nil || d <= 0 {
		d = time.Second
	} else if d > time.Minute {
		d = time.Minute
	}
	interval = d / time.Duration(count)

	switch strings.ToLower(os.Getenv("SITEWATCH_PING_PRIVILEGED")) {
	case "1", "true", "yes", "on":
		p := true
		privileged = &p
	case "0", "false", "no", "off":
		p := false
		privileged = &p
	}

	return
}

// sharedPinger starts ICMP listeners on the first use, and stops them when the last user released.
type sharedPinger struct {
	sync.Mutex

	count int
	v4    *pinger.Pinger
	v6    *pinger.Pinger
	stop  context.CancelFunc
}

func startPinger(ctx context.Context, p *pinger.Pinger, privileged *bool) error {
	if privileged != nil {
		p.SetPrivileged(*privileged)
		return p.Start(ctx)
	}

	if err := p.Start(ctx); err == nil {
		return nil
	}
	p.SetPrivileged(!pinger.DEFAULT_PRIVILEGED)
	return p.Start(ctx)
}

func (p *sharedPinger) start() error {
	_, _, privileged := pingSettings()

	ctx, stop := context.WithCancel(context.Background())

	v4 := pinger.NewIPv4()
	v6 := pinger.NewIPv6()
	if err := startPinger(ctx, v4, privileged); err != nil {
		stop()
		return err
	}
	if err := startPinger(ctx, v6, privileged); err != nil {
		stop()
		return err
	}

	p.v4, p.v6, p.stop = v4, v6, stop
	return nil
}

func (p *sharedPinger) Get(ip net.IP) (*pinger.Pinger, error) {
	p.Lock()
	defer p.Unlock()

	if p.count == 0 {
		if err := p.start(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToPreparePing, err)
		}
	}
	p.count++

	if ip.To4() != nil {
		return p.v4, nil
	}
	return p.v6, nil
}

func (p *sharedPinger) Release() {
	p.Lock()
	defer p.Unlock()

	if p.count > 0 {
		p.count--
		if p.count == 0 {
			p.stop()
			p.v4, p.v6, p.stop = nil, nil, nil
		}
	}
}

var sharedICMP = &sharedPinger{}

// PingProbe sends ICMP echo requests.
// The target is down only if all packets have dropped.
type PingProbe struct {
	target string
	proto  string
	host   string
}

func NewPingProbe(target string, u *url.URL) (PingProbe, error) {
	scheme, separator, _ := SplitScheme(strings.ToLower(u.Scheme))
	if separator != 0 {
		return PingProbe{}, ErrUnsupportedScheme
	}

	host := u.Opaque
	if host == "" {
		host = u.Hostname()
	}
	if host == "" {
		return PingProbe{}, ErrMissingHost
	}

	proto := "ip"
	switch scheme {
	case "ping4":
		proto = "ip4"
	case "ping6":
		proto = "ip6"
	}

	return PingProbe{
		target: target,
		proto:  proto,
		host:   strings.ToLower(host),
	}, nil
}

func (p PingProbe) Target() string {
	return p.target
}

func (p PingProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	addr, err := net.DefaultResolver.LookupIPAddr(ctx, p.host)
	if err != nil {
		return failed(ctx, r, err)
	}
	ip, ok := pickIP(addr, p.proto)
	if !ok {
		return failed(ctx, r, fmt.Errorf("no %s address for %s", p.proto, p.host))
	}

	ping, err := sharedICMP.Get(ip.IP)
	if err != nil {
		return failed(ctx, r, err)
	}
	defer sharedICMP.Release()

	count, interval, _ := pingSettings()
	result, err := ping.Ping(ctx, ip, count, interval)
	if err != nil {
		return failed(ctx, r, err)
	}

	return timeoutOr(ctx, pingResultToProbeResult(r, result))
}

func pickIP(addrs []net.IPAddr, proto string) (*net.IPAddr, bool) {
	for _, a := range addrs {
		is4 := a.IP.To4() != nil
		if proto == "ip" || (proto == "ip4" && is4) || (proto == "ip6" && !is4) {
			return &a, true
		}
	}
	return nil, false
}

func pingResultToProbeResult(r api.ProbeResult, result pinger.Result) api.ProbeResult {
	message := fmt.Sprintf("rtt_avg=%.3fms packets_recv=%d packets_sent=%d", float64(result.AvgRTT.Microseconds())/1000, result.Recv, result.Sent)

	if result.Recv == 0 {
		r.Latency = time.Since(r.CheckedAt)
		r.Verdict = api.VerdictDown
		r.Error = api.ErrorTimeout
		r.Message = "all packets have dropped: " + message
		return r
	}

	r = succeed(r, message)
	r.Latency = result.AvgRTT
	return r
}
