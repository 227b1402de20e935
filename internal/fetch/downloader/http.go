package downloader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/any-hub/any-fetch/internal/fetch"
)

// defaultTransport 复用长连接并集中配置超时，代理在 NewHTTP 中按配置覆盖。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// HTTP 基于 net/http 的下载后端，gzip 由 Transport 透明处理。
type HTTP struct {
	client *http.Client
	opts   Options
}

// NewHTTP 构造共享 http.Client，代理配置在此处一次性生效。
func NewHTTP(opts Options) *HTTP {
	transport := defaultTransport.Clone()
	if opts.Proxy != nil {
		transport.Proxy = http.ProxyURL(opts.Proxy)
	}

	return &HTTP{
		client: &http.Client{
			Timeout:       opts.Timeout,
			Transport:     transport,
			CheckRedirect: limitRedirects,
		},
		opts: opts,
	}
}

func limitRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

// Attempt 执行一次条件 GET：304 → NotModified，200 → 新正文与 Last-Modified。
func (d *HTTP) Attempt(ctx context.Context, requestURL, token string) (fetch.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return fetch.Response{}, err
	}
	for key, value := range requestHeaders(d.opts, token) {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fetch.Response{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fetch.Response{NotModified: true}, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fetch.Response{}, fmt.Errorf("read body: %w", err)
		}
		return fetch.Response{
			Body:  body,
			Token: resp.Header.Get("Last-Modified"),
		}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return fetch.Response{}, &StatusError{URL: requestURL, Code: resp.StatusCode}
	}
}
