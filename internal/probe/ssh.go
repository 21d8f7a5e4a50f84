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

	api "github.com/macrat/sitewatch/lib-sitewatch"
	"golang.org/x/crypto/ssh"
)

var (
	ErrFingerprintUnmatched = errors.New("fingerprint unmatched")
)

type sshConfig struct {
	Host     string
	User     string
	Auth     []ssh.AuthMethod
	CheckKey func(ssh.PublicKey) (ok bool)
}

func newSSHConfig(u *url.URL) (sshConfig, error) {
	c := sshConfig{
		Host: strings.ToLower(u.Host),
	}
	if u.Hostname() == "" {
		return c, ErrMissingHost
	}
	if u.Port() == "" {
		c.Host += ":22"
	}

	if u.User == nil || u.User.Username() == "" {
		return c, errors.New("username is required")
	}
	c.User = u.User.Username()

	query := u.Query()

	if identityFile := query.Get("identityfile"); identityFile != "" {
		pem, err := os.ReadFile(identityFile)
		if errors.Is(err, os.ErrNotExist) {
			return c, fmt.Errorf("no such identity file: %s", identityFile)
		} else if err != nil {
			return c, err
		}

		var signer ssh.Signer
		if p, ok := u.User.Password(); ok {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(p))
		} else {
			signer, err = ssh.ParsePrivateKey(pem)
		}
		if err != nil {
			return c, fmt.Errorf("identity file: %w", err)
		}

		c.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	} else if password, ok := u.User.Password(); ok {
		c.Auth = []ssh.AuthMethod{ssh.Password(password)}
	} else {
		return c, errors.New("password or identityfile is required")
	}

	fingerprint := strings.ReplaceAll(query.Get("fingerprint"), " ", "+")
	switch {
	case fingerprint == "":
		c.CheckKey = func(ssh.PublicKey) bool {
			return true
		}
	case strings.HasPrefix(fingerprint, "SHA256:"):
		c.CheckKey = func(key ssh.PublicKey) bool {
			return ssh.FingerprintSHA256(key) == fingerprint
		}
	case strings.HasPrefix(fingerprint, "MD5:"):
		fingerprint := strings.ToLower(fingerprint)[len("MD5:"):]
		c.CheckKey = func(key ssh.PublicKey) bool {
			return ssh.FingerprintLegacyMD5(key) == fingerprint
		}
	default:
		return c, errors.New("unsupported fingerprint format")
	}

	return c, nil
}

type sshConnection struct {
	Client      *ssh.Client
	Fingerprint string
}

func (conn sshConnection) Close() error {
	if conn.Client != nil {
		return conn.Client.Close()
	}
	return nil
}

func dialSSH(ctx context.Context, c sshConfig) (conn sshConnection, err error) {
	var dialer net.Dialer
	rawConn, err := dialer.DialContext(ctx, "tcp", c.Host)
	if err != nil {
		return conn, err
	}

	var timeout time.Duration
	if t, ok := ctx.Deadline(); ok {
		timeout = time.Until(t)
		rawConn.SetDeadline(t)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(rawConn, c.Host, &ssh.ClientConfig{
		User: c.User,
		Auth: c.Auth,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			conn.Fingerprint = ssh.FingerprintSHA256(key)
			if !c.CheckKey(key) {
				return ErrFingerprintUnmatched
			}
			return nil
		},
		Timeout: timeout,
	})
	if err != nil {
		rawConn.Close()
		return conn, err
	}
	rawConn.SetDeadline(time.Time{})

	conn.Client = ssh.NewClient(sshConn, chans, reqs)
	return conn, nil
}

// SSHProbe connects and authenticates to the SSH server.
type SSHProbe struct {
	target string
	conf   sshConfig
}

func NewSSHProbe(target string, u *url.URL) (SSHProbe, error) {
	_, separator, _ := SplitScheme(u.Scheme)
	if separator != 0 {
		return SSHProbe{}, ErrUnsupportedScheme
	}

	conf, err := newSSHConfig(u)
	if err != nil {
		return SSHProbe{}, err
	}

	return SSHProbe{
		target: target,
		conf:   conf,
	}, nil
}

func (p SSHProbe) Target() string {
	return p.target
}

func (p SSHProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	conn, err := dialSSH(ctx, p.conf)
	conn.Close()
	if err != nil {
		return failed(ctx, r, err)
	}

	return timeoutOr(ctx, succeed(r, "fingerprint="+conn.Fingerprint))
}
