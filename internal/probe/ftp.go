package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/jlaffaye/ftp"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

var (
	ErrMissingUsername = errors.New("username is required if set password")
	ErrMissingPassword = errors.New("password is required if set username")
)

// FTPProbe logins to the FTP server, and lists the path.
type FTPProbe struct {
	target string
	tls    bool
	host   string
	user   *url.Userinfo
	path   string
}

func NewFTPProbe(target string, u *url.URL) (FTPProbe, error) {
	scheme, separator, _ := SplitScheme(strings.ToLower(u.Scheme))
	if separator != 0 {
		return FTPProbe{}, ErrUnsupportedScheme
	}

	if u.Hostname() == "" {
		return FTPProbe{}, ErrMissingHost
	}

	if u.User != nil {
		if u.User.Username() == "" {
			return FTPProbe{}, ErrMissingUsername
		}
		if _, ok := u.User.Password(); !ok {
			return FTPProbe{}, ErrMissingPassword
		}
	}

	p := FTPProbe{
		target: target,
		tls:    scheme == "ftps",
		host:   strings.ToLower(u.Host),
		user:   u.User,
		path:   path.Clean("/" + u.Path),
	}
	if u.Port() == "" {
		p.host += ":21"
	}
	return p, nil
}

func (p FTPProbe) Target() string {
	return p.target
}

func (p FTPProbe) userInfo() (user, pass string) {
	if p.user == nil {
		return "anonymous", "anonymous"
	}

	user = p.user.Username()
	pass, _ = p.user.Password()
	return user, pass
}

func (p FTPProbe) options(ctx context.Context) []ftp.DialOption {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
	}
	if p.tls {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{}))
	}
	return opts
}

func (p FTPProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	conn, err := ftp.Dial(p.host, p.options(ctx)...)
	if err != nil {
		return failed(ctx, r, err)
	}
	defer conn.Quit()

	if err := conn.Login(p.userInfo()); err != nil {
		return failed(ctx, r, fmt.Errorf("failed to login: %w", err))
	}

	ls, err := conn.List(p.path)
	if err != nil {
		return failed(ctx, r, err)
	}
	if len(ls) == 0 {
		return failed(ctx, r, errors.New("no such file or directory"))
	}

	n := 0
	for _, f := range ls {
		if f.Name != "." && f.Name != ".." {
			n++
		}
	}

	if n == 1 && ls[0].Name == path.Base(p.path) {
		return timeoutOr(ctx, succeed(r, fmt.Sprintf("type=file size=%d", ls[0].Size)))
	}
	return timeoutOr(ctx, succeed(r, fmt.Sprintf("type=directory files=%d", n)))
}
