package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/macrat/sitewatch/internal/meta"
	api "github.com/macrat/sitewatch/lib-sitewatch"
)

const (
	HTTP_REDIRECT_MAX = 10
)

var (
	ErrRedirectLoopDetected = errors.New("redirect loop detected")
	httpClient              = &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
		CheckRedirect: checkHTTPRedirect,
	}
)

func checkHTTPRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > HTTP_REDIRECT_MAX {
		return ErrRedirectLoopDetected
	}
	return nil
}

// HTTPProbe requests the target and checks the status code.
// Only 5xx responses are treated as down.
type HTTPProbe struct {
	target  string
	method  string
	request *url.URL
}

func NewHTTPProbe(target string, u *url.URL) (HTTPProbe, error) {
	scheme, separator, method := SplitScheme(strings.ToLower(u.Scheme))
	method = strings.ToUpper(method)

	if separator == 0 {
		method = http.MethodGet
	} else if separator != '-' {
		return HTTPProbe{}, ErrUnsupportedScheme
	} else {
		switch method {
		case "GET", "HEAD", "POST", "OPTIONS":
		default:
			return HTTPProbe{}, fmt.Errorf("HTTP \"%s\" method is not supported. Please use GET, HEAD, POST, or OPTIONS.", method)
		}
	}

	if u.Hostname() == "" {
		return HTTPProbe{}, ErrMissingHost
	}

	requrl := *u
	requrl.Scheme = scheme
	requrl.Host = strings.ToLower(u.Host)
	requrl.Fragment = ""
	if requrl.Path == "" {
		requrl.Path = "/"
	}

	return HTTPProbe{
		target:  target,
		method:  method,
		request: &requrl,
	}, nil
}

func (p HTTPProbe) Target() string {
	return p.target
}

func (p HTTPProbe) Probe(ctx context.Context) api.ProbeResult {
	r := begin(p.target)

	req, err := http.NewRequestWithContext(ctx, p.method, p.request.String(), nil)
	if err != nil {
		return failed(ctx, r, err)
	}
	req.Header.Set("User-Agent", meta.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return failed(ctx, r, err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024*1024))
	resp.Body.Close()

	return responseToResult(r, resp)
}

func responseToResult(r api.ProbeResult, resp *http.Response) api.ProbeResult {
	message := fmt.Sprintf("proto=%s length=%d status=%s", resp.Proto, resp.ContentLength, strings.ReplaceAll(resp.Status, " ", "_"))

	if resp.StatusCode >= 500 {
		r = succeed(r, message)
		r.Verdict = api.VerdictDown
		r.Error = api.HTTPServerError(resp.StatusCode)
		return r
	}

	return succeed(r, message)
}
