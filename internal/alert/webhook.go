package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/macrat/sitewatch/internal/meta"
)

var httpClient = &http.Client{
	Transport: &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	},
}

// WebhookSender sends alerts as a GET request with sitewatch_* query parameters.
type WebhookSender struct {
	target string
	url    *url.URL
}

func NewWebhookSender(target string, u *url.URL) (WebhookSender, error) {
	if u.Hostname() == "" {
		return WebhookSender{}, errors.New("missing target host")
	}
	return WebhookSender{target: target, url: u}, nil
}

func (s WebhookSender) Target() string {
	return s.target
}

func (s WebhookSender) requestURL(a Alert) string {
	qs := s.url.Query()
	qs.Set("sitewatch_kind", string(a.Kind))
	qs.Set("sitewatch_target", a.Target)
	qs.Set("sitewatch_incident", a.IncidentID)
	qs.Set("sitewatch_at", a.At.Format(time.RFC3339))
	if a.Error != "" {
		qs.Set("sitewatch_error", string(a.Error))
	}
	if a.Kind == KindClosed {
		qs.Set("sitewatch_duration", strconv.FormatInt(int64(a.Duration/time.Second), 10))
	}

	u := *s.url
	u.RawQuery = qs.Encode()
	return u.String()
}

func (s WebhookSender) Send(ctx context.Context, a Alert) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(a), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", meta.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
	return nil
}
