package probe

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/pkg/sftp"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

// SFTPProbe connects to the SSH server, and checks the path exists via SFTP.
type SFTPProbe struct {
	target string
	conf   sshConfig
	path   string
}

func NewSFTPProbe(target string, u *url.URL) (SFTPProbe, error) {
	_, separator, _ := SplitScheme(u.Scheme)
	if separator != 0 {
		return SFTPProbe{}, ErrUnsupportedScheme
	}

	conf, err := newSSHConfig(u)
	if err != nil {
		return SFTPProbe{}, err
	}

	return SFTPProbe{
		target: target,
		conf:   conf,
		path:   path.Clean("/" + u.Path),
	}, nil
}

func (p SFTPProbe) Target() string {
	return p.target
}

func (p SFTPProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	conn, err := dialSSH(ctx, p.conf)
	if err != nil {
		conn.Close()
		return failed(ctx, r, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn.Client)
	if err != nil {
		return failed(ctx, r, fmt.Errorf("failed to establish SFTP connection: %w", err))
	}
	defer client.Close()

	info, err := client.Stat(p.path)
	if err != nil {
		return failed(ctx, r, err)
	}

	if info.IsDir() {
		return timeoutOr(ctx, succeed(r, "type=directory"))
	}
	return timeoutOr(ctx, succeed(r, fmt.Sprintf("type=file size=%d", info.Size())))
}
