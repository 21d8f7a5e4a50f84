package probe

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/macrat/go-parallel-pinger"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	tests := []struct {
		Name   string
		Ctx    context.Context
		Err    error
		Expect api.ErrorCode
	}{
		{"deadline", context.Background(), context.DeadlineExceeded, api.ErrorTimeout},
		{"wrapped-deadline", context.Background(), &net.OpError{Op: "dial", Err: context.DeadlineExceeded}, api.ErrorTimeout},
		{"net-timeout", context.Background(), timeoutError{}, api.ErrorTimeout},
		{"expired-context", expired, errors.New("something"), api.ErrorTimeout},
		{"refused", context.Background(), &net.OpError{Op: "dial", Err: errors.New("connection refused")}, api.ErrorConnection},
		{"dns", context.Background(), &net.DNSError{Name: "example.invalid", IsNotFound: true}, api.ErrorConnection},
		{"other", context.Background(), errors.New("something"), api.ErrorConnection},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			if code := Classify(tt.Ctx, tt.Err); code != tt.Expect {
				t.Errorf("expected %q but got %q", tt.Expect, code)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		Err    error
		Expect string
	}{
		{nil, ""},
		{&net.DNSError{Name: "example.invalid", IsNotFound: true}, "lookup example.invalid: not found"},
		{&net.OpError{Op: "dial", Net: "tcp", Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}, Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, "127.0.0.1:80: connection refused"},
		{&net.OpError{Op: "dial", Net: "tcp", Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 443}, Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)}, "10.0.0.1:443: no route to host"},
		{&net.OpError{Op: "dial", Net: "tcp", Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 22}, Err: errors.New("network is down")}, "10.0.0.2:22: network is down"},
		{errors.New("hello"), "hello"},
	}

	for _, tt := range tests {
		if msg := describe(tt.Err); msg != tt.Expect {
			t.Errorf("expected %q but got %q", tt.Expect, msg)
		}
	}
}

func TestPingResultToProbeResult(t *testing.T) {
	base := api.ProbeResult{Target: "ping:example.com", CheckedAt: time.Now()}

	r := pingResultToProbeResult(base, pinger.Result{Sent: 3, Recv: 3, AvgRTT: 12 * time.Millisecond})
	if r.Verdict != api.VerdictUp || r.Error != api.ErrorNone || r.Latency != 12*time.Millisecond {
		t.Errorf("unexpected result: %#v", r)
	}

	r = pingResultToProbeResult(base, pinger.Result{Sent: 3, Recv: 1, AvgRTT: 12 * time.Millisecond})
	if r.Verdict != api.VerdictUp {
		t.Errorf("partial loss should be up: %#v", r)
	}

	r = pingResultToProbeResult(base, pinger.Result{Sent: 3, Recv: 0})
	if r.Verdict != api.VerdictDown || r.Error != api.ErrorTimeout {
		t.Errorf("all lost should be down: %#v", r)
	}
}

func TestPickIP(t *testing.T) {
	addrs := []net.IPAddr{
		{IP: net.ParseIP("::1")},
		{IP: net.ParseIP("127.0.0.1")},
	}

	if ip, ok := pickIP(addrs, "ip4"); !ok || ip.IP.String() != "127.0.0.1" {
		t.Errorf("unexpected ip4: %v %v", ip, ok)
	}
	if ip, ok := pickIP(addrs, "ip6"); !ok || ip.IP.String() != "::1" {
		t.Errorf("unexpected ip6: %v %v", ip, ok)
	}
	if ip, ok := pickIP(addrs, "ip"); !ok || ip.IP.String() != "::1" {
		t.Errorf("unexpected ip: %v %v", ip, ok)
	}
	if _, ok := pickIP(addrs[:1], "ip4"); ok {
		t.Errorf("expected no address")
	}
}
